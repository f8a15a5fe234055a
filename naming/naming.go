// Package naming derives object file names from source paths.
//
// Names are <fingerprint>-<stem>.o, where the fingerprint is a 64-bit
// FNV-1a digest of the canonical source path salted with the toolchain
// identity. Two sources that share a basename never collide, and the stem
// keeps the name readable.
package naming

import (
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"path/filepath"
	"strings"
)

// Namer maps sources to object paths inside Dir.
type Namer struct {
	Dir  string
	Salt string
}

// New creates a namer for objects in dir.
func New(dir, salt string) *Namer {
	return &Namer{Dir: dir, Salt: salt}
}

// ObjectPath returns the object path for source.
func (n *Namer) ObjectPath(source string) (string, error) {
	canonical, err := Canonical(source)
	if err != nil {
		return "", err
	}
	stem := strings.TrimSuffix(filepath.Base(canonical), filepath.Ext(canonical))
	return filepath.Join(n.Dir, Fingerprint(n.Salt, canonical)+"-"+stem+".o"), nil
}

// Canonical makes source absolute and clean, and resolves symlinks when
// the file exists.
func Canonical(source string) (string, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", fmt.Errorf("canonicalize %s: %w", source, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	switch {
	case err == nil:
		return resolved, nil
	case errors.Is(err, fs.ErrNotExist):
		return abs, nil
	default:
		return "", fmt.Errorf("canonicalize %s: %w", source, err)
	}
}

// Fingerprint renders the 16-hex-digit digest of salt and path.
func Fingerprint(salt, path string) string {
	h := fnv.New64a()
	h.Write([]byte(salt))
	h.Write([]byte{0})
	h.Write([]byte(path))
	return fmt.Sprintf("%016x", h.Sum64())
}
