package depcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"

	"kiln/internal/manifest"
	"kiln/internal/stub"
)

// Key addresses one dependency cache entry.
type Key string

// Short returns an abbreviated form for logs and tables.
func (k Key) Short() string {
	if len(k) <= 12 {
		return string(k)
	}
	return string(k[:12])
}

// Compute derives the cache key for a workspace. The hash covers the lockfile
// bytes, every member manifest in declaration order, and the canonical stub
// body per member kind. Real source content never enters the hash.
func Compute(ws *manifest.Workspace) (Key, error) {
	h := sha256.New()

	writeSection(h, "lockfile", ws.Lockfile.Raw)
	for i := range ws.Members {
		member := &ws.Members[i]
		rel, err := filepath.Rel(ws.Root, member.Dir)
		if err != nil {
			return "", fmt.Errorf("resolve member dir: %w", err)
		}
		writeSection(h, "manifest:"+rel, member.Raw)
		writeSection(h, "stub:"+rel, []byte(stub.Body(member.Kind)))
	}

	return Key(hex.EncodeToString(h.Sum(nil))), nil
}

// writeSection writes a length-prefixed labelled section so that adjacent
// inputs cannot collide by shifting bytes between them.
func writeSection(w io.Writer, label string, body []byte) {
	fmt.Fprintf(w, "%s:%d\n", label, len(body))
	w.Write(body)
}
