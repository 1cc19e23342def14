package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Prompter asks the operator to approve a destructive operation.
type Prompter interface {
	Confirm(question string) (bool, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(question string) (bool, error)

func (f PrompterFunc) Confirm(q string) (bool, error) { return f(q) }

// TerminalPrompter reads a y/N answer from In. It refuses to guess when In
// is not an interactive terminal.
type TerminalPrompter struct {
	In    io.Reader
	Out   io.Writer
	IsTTY bool
}

// NewTerminalPrompter prompts on stdin/stderr.
func NewTerminalPrompter() *TerminalPrompter {
	fd := os.Stdin.Fd()
	return &TerminalPrompter{
		In:    os.Stdin,
		Out:   os.Stderr,
		IsTTY: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}
}

func (p *TerminalPrompter) Confirm(question string) (bool, error) {
	if !p.IsTTY {
		return false, fmt.Errorf("%w: stdin is not a terminal (pass --yes to skip the prompt)", ErrNotConfirmed)
	}
	fmt.Fprintf(p.Out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("storage: read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
