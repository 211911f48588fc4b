// Package idutil provides opaque ID generation and UTC time helpers shared
// across the store, session manager, and event log (spec.md §4.1).
package idutil

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	memoryIDPrefix  = "mem_"
	sessionIDPrefix = "sess_"
	idRandomBytes   = 6
)

// NewMemoryID returns a fresh "mem_" + 12 lowercase hex char ID.
func NewMemoryID() string { return newID(memoryIDPrefix) }

// NewSessionID returns a fresh "sess_" + 12 lowercase hex char ID.
func NewSessionID() string { return newID(sessionIDPrefix) }

func newID(prefix string) string {
	buf := make([]byte, idRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand.Read on the standard reader does not fail in practice;
		// a hard failure here would indicate a broken OS entropy source.
		panic(fmt.Sprintf("idutil: failed to read random bytes: %v", err))
	}
	return prefix + hex.EncodeToString(buf)
}

// Now returns the current UTC instant, truncated to second precision so
// that round-tripping through ISO 8601 text storage is lossless.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// FormatTimestamp renders t as ISO 8601 with an explicit UTC offset.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseTimestamp parses an ISO 8601 string, accepting a trailing "Z" or an
// explicit numeric offset.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("idutil: invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// IsExpired reports whether expiresAt (if set) is in the past relative to now.
func IsExpired(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && now.After(*expiresAt)
}
