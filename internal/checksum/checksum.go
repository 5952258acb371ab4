// Package checksum computes the content digests served as entity tags.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/starford/corkboard/internal/board"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Items returns the digest of the JSON form of items. A nil and an empty
// collection hash the same.
func Items(items []board.Item) (string, error) {
	if items == nil {
		items = []board.Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return Sum(data), nil
}

// ETag quotes sum for an ETag header.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// Matches reports whether an If-None-Match header value names sum. Weak
// validators and lists are accepted.
func Matches(header, sum string) bool {
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" {
			return true
		}
		tag = strings.TrimPrefix(tag, "W/")
		if strings.Trim(tag, `"`) == sum {
			return true
		}
	}
	return false
}
