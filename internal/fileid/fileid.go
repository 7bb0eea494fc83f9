// Package fileid derives a deterministic record ID from a file path.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "file:"

// RecordID returns a stable record ID for the given path. The same path
// always yields the same ID, so re-ingesting a file replaces its record
// and deletes can be keyed by path alone.
func RecordID(path string) string {
	normalized := filepath.Clean(path)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:])
}
