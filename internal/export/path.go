package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Ext is the extension every export carries.
const Ext = ".parquet"

// NormalizePath replaces the last extension of p with .parquet, keeping the
// stem: "works", "works.csv" and "works.parquet" all become "works.parquet".
// The path is cleaned first, so "out/works/" becomes "out/works.parquet".
// A path without a stem ("", ".", "..", "/") is returned cleaned but
// otherwise unchanged.
func NormalizePath(p string) string {
	if p == "" {
		return p
	}
	p = filepath.Clean(p)
	if !hasStem(p) {
		return p
	}
	ext := filepath.Ext(p)
	if ext == filepath.Base(p) {
		// Dotfile such as ".works": the whole name is the stem.
		ext = ""
	}
	return strings.TrimSuffix(p, ext) + Ext
}

func hasStem(p string) bool {
	base := filepath.Base(p)
	return base != "." && base != ".." && base != string(filepath.Separator)
}

// PrepareOutfile normalizes p and creates its parent directories.
func PrepareOutfile(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("export: empty output path")
	}
	out := NormalizePath(p)
	if !hasStem(out) {
		return "", fmt.Errorf("export: output path %q names no file", p)
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("export: create %s: %w", dir, err)
		}
	}
	return out, nil
}
