package payments

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Payment references are shared with the external provider, so they must
// stay within its accepted charset (alphanumeric plus hyphen/underscore)
// and length, and must not be guessable: the status-check and callback
// endpoints key on them.

var referencePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{9,99}$`)

// NewReference builds "<PREFIX>-<base36 unix millis>-<64 bits of entropy>",
// e.g. "REG-mf3k2p1q-9f86d081884c7d65".
func NewReference(prefix string) string {
	b := make([]byte, 8)
	rand.Read(b)
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	return prefix + "-" + ts + "-" + hex.EncodeToString(b)
}

// PrefixOf returns the type prefix of a generated reference, or "" when
// the reference carries none.
func PrefixOf(reference string) string {
	i := strings.IndexByte(reference, '-')
	if i <= 0 {
		return ""
	}
	return reference[:i]
}

// ValidReference reports whether a client-supplied reference is safe to
// hand to the provider and to use as a lookup key.
func ValidReference(reference string) bool {
	return referencePattern.MatchString(reference)
}
