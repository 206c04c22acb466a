// ABOUTME: Opaque pagination cursor codec
// ABOUTME: Cursors are base64 of pipe-joined parts; backends choose what the parts mean

package store

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrBadCursor wraps every cursor decoding failure.
var ErrBadCursor = errors.New("invalid cursor")

// EncodeCursor packs backend-specific position parts into an opaque token.
func EncodeCursor(parts ...string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strings.Join(parts, "|")))
}

// DecodeCursor unpacks a token made by EncodeCursor and checks its arity.
// An empty cursor decodes to nil parts.
func DecodeCursor(cursor string, want int) ([]string, error) {
	if cursor == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	parts := strings.Split(string(raw), "|")
	if len(parts) != want {
		return nil, fmt.Errorf("%w: expected %d parts, got %d", ErrBadCursor, want, len(parts))
	}
	return parts, nil
}
