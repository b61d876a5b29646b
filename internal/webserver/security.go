package webserver

import (
	"path/filepath"
	"strings"
)

// Names of the two browsable trees.
const (
	TreeRaw      = "raw"
	TreePrepared = "prepared"
)

// SafeJoin resolves rel under root and rejects anything that would escape
// it: absolute paths, empty paths, .. traversal and the root itself.
func SafeJoin(root, rel string) (string, error) {
	rel = strings.TrimPrefix(rel, "/")
	if strings.TrimSpace(rel) == "" {
		return "", invalidArgument("empty path")
	}

	rel = filepath.Clean(filepath.FromSlash(rel))

	// IsLocal treats "." as local, but the tree root is not a deletable
	// entry. Cleaning first also folds "./" and "a/.." into ".".
	if rel == "." {
		return "", invalidArgument("path names the tree root, not a file")
	}

	if !filepath.IsLocal(rel) {
		return "", invalidArgument("path escapes the tree: %s", rel)
	}

	return filepath.Join(root, rel), nil
}
