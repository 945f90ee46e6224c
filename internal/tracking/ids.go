package tracking

import (
	"encoding/binary"
	"encoding/hex"
	"path/filepath"
	"strconv"

	"github.com/minio/highwayhash"
)

// DocumentID identifies an open document. It is a hash of the document's
// backing file path, so the same file always maps to the same state.
type DocumentID string

// FunctionID identifies a tracked function. It is derived from the
// function's start offset only.
type FunctionID string

var hashKey = []byte("autodoc-function-tracking-key-01")

// NewDocumentID returns the identity for the document backed by path.
func NewDocumentID(path string) DocumentID {
	return DocumentID(hashString(filepath.Clean(path)))
}

// FunctionIDFor returns the identity a function starting at offset has.
func FunctionIDFor(startOffset int) FunctionID {
	return FunctionID(hashString(strconv.Itoa(startOffset)))
}

// hashString returns a 16-char hex highwayhash-64 of s.
func hashString(s string) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], highwayhash.Sum64([]byte(s), hashKey))
	return hex.EncodeToString(buf[:])
}
