package stt

import (
	"path/filepath"
	"strings"
)

// Audio is an uploaded recording as received from a caller.
type Audio struct {
	// Filename is the client-supplied name, used for extension checks and
	// as the suffix of the transient file.
	Filename string

	// ContentType is the declared MIME type, if any.
	ContentType string

	// Data holds the raw encoded audio.
	Data []byte

	// DeclaredSize is the size reported by the transport. Zero means
	// unknown, in which case len(Data) is used.
	DeclaredSize int64
}

// Size returns the declared size, falling back to the payload length.
func (a *Audio) Size() int64 {
	if a.DeclaredSize > 0 {
		return a.DeclaredSize
	}
	return int64(len(a.Data))
}

// Extension returns the lower-cased last dot-delimited segment of the
// filename. A name without a dot is returned whole.
func (a *Audio) Extension() string {
	name := filepath.Base(a.Filename)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(name)
}
