// Package formats holds the table of document formats the service knows how
// to handle. The built-in table is embedded as TOML; deployments can extend
// or override it with their own definitions file.
package formats

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Format describes one source extension: what it converts to and whether it
// is already in the target format (passthrough = copy, no conversion).
type Format struct {
	Ext         string `toml:"ext"`
	Target      string `toml:"target"`
	Passthrough bool   `toml:"passthrough"`
}

type definitionsFile struct {
	Format []Format `toml:"format"`
}

// Registry resolves source extensions to formats. Lookups are
// case-insensitive and ignore a leading dot.
type Registry struct {
	byExt map[string]Format
}

//go:embed formats.toml
var builtinDefinitions embed.FS

// Default loads the embedded conversion table.
func Default() (*Registry, error) {
	data, err := builtinDefinitions.ReadFile("formats.toml")
	if err != nil {
		return nil, fmt.Errorf("reading built-in format definitions: %w", err)
	}

	r := &Registry{byExt: make(map[string]Format)}
	if err := r.merge(data); err != nil {
		return nil, fmt.Errorf("built-in format definitions: %w", err)
	}

	return r, nil
}

// MergeFile adds definitions from a TOML file on disk. Entries with a known
// extension replace the built-in ones.
func (r *Registry) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading format definitions %s: %w", path, err)
	}

	if err := r.merge(data); err != nil {
		return fmt.Errorf("format definitions %s: %w", path, err)
	}

	return nil
}

func (r *Registry) merge(data []byte) error {
	var defs definitionsFile
	if err := toml.Unmarshal(data, &defs); err != nil {
		return fmt.Errorf("parsing TOML: %w", err)
	}

	if len(defs.Format) == 0 {
		return errors.New("no [[format]] entries")
	}

	for _, f := range defs.Format {
		f.Ext = NormalizeExt(f.Ext)
		f.Target = NormalizeExt(f.Target)

		if f.Ext == "" {
			return errors.New("format entry missing ext")
		}
		if f.Target == "" {
			return fmt.Errorf("format %q missing target", f.Ext)
		}

		r.byExt[f.Ext] = f
	}

	return nil
}

// Lookup returns the format for a file extension, if the registry knows it.
func (r *Registry) Lookup(ext string) (Format, bool) {
	f, ok := r.byExt[NormalizeExt(ext)]
	return f, ok
}

// Exts lists the registered extensions in sorted order.
func (r *Registry) Exts() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}

	sort.Strings(exts)

	return exts
}

// NormalizeExt lowercases an extension and strips the leading dot, so ".DOC",
// "Doc" and "doc" all land on the same registry key.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
