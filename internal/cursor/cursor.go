// Package cursor encodes and decodes the opaque pagination tokens handed to
// feed clients. Decoding is lenient: a token that cannot be parsed is treated
// as absent, so a bad cursor yields the first page instead of an error.
package cursor

import (
	"strconv"
	"strings"
	"time"
)

const separator = "|"

// Anchor is the (createdAt, id) sort key of the last item on a keyset page.
type Anchor struct {
	CreatedAt time.Time
	ID        string
}

// Before reports whether an item with the given key sorts after the anchor in
// (createdAt DESC, id DESC) order, i.e. belongs on a following page.
func (a Anchor) Before(createdAt time.Time, id string) bool {
	if createdAt.Before(a.CreatedAt) {
		return true
	}
	return createdAt.Equal(a.CreatedAt) && id < a.ID
}

// Encode renders the anchor as "<RFC3339Nano>|<id>".
func (a Anchor) Encode() string {
	return EncodeAnchor(a.CreatedAt, a.ID)
}

// EncodeAnchor renders a keyset cursor for the item with the given sort key.
func EncodeAnchor(createdAt time.Time, id string) string {
	return createdAt.UTC().Format(time.RFC3339Nano) + separator + id
}

// DecodeAnchor parses a keyset cursor. ok is false for empty or malformed input.
func DecodeAnchor(s string) (Anchor, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Anchor{}, false
	}

	// RFC3339Nano never contains the separator; the id may.
	i := strings.Index(s, separator)
	if i <= 0 || i == len(s)-1 {
		return Anchor{}, false
	}

	ts, err := time.Parse(time.RFC3339Nano, s[:i])
	if err != nil {
		return Anchor{}, false
	}

	return Anchor{CreatedAt: ts.UTC(), ID: s[i+1:]}, true
}

// EncodeOffset renders an offset cursor.
func EncodeOffset(offset int) string {
	return strconv.Itoa(offset)
}

// DecodeOffset parses an offset cursor. Anything that is not a non-negative
// base-10 integer decodes to 0.
func DecodeOffset(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
