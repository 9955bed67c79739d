// Package snapshot encodes history snapshots for storage.
//
// A snapshot is the serialized content of the history root at the moment
// of a navigation, keyed by URL. The codec packs snapshots with msgpack
// and appends an integrity digest so a corrupted entry is detected on
// restore instead of being swapped into the page verbatim.
package snapshot

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	// ErrInvalidFormat indicates the encoded string is not a snapshot.
	ErrInvalidFormat = errors.New("snapshot: invalid format")

	// ErrChecksumMismatch indicates the payload was altered or truncated.
	ErrChecksumMismatch = errors.New("snapshot: checksum mismatch")
)

// Snapshot is one restorable history entry.
type Snapshot struct {
	URL          string `msgpack:"u"`
	Content      string `msgpack:"c"`           // inner HTML of the history root
	ScrollTarget string `msgpack:"st,omitempty"` // element id the page was scrolled to
	ScrollPos    string `msgpack:"sp,omitempty"` // "top" or "bottom"
	Timestamp    int64  `msgpack:"ts"`           // epoch milliseconds
}

// Encode packs a snapshot into its storage form: base64(msgpack).digest.
func Encode(s Snapshot) (string, error) {
	packed, err := msgpack.Marshal(s)
	if err != nil {
		return "", err
	}
	b64 := base64.RawURLEncoding.EncodeToString(packed)
	return b64 + "." + digest(packed), nil
}

// Decode unpacks a stored snapshot, verifying its integrity digest.
func Decode(encoded string) (Snapshot, error) {
	var s Snapshot

	parts := strings.SplitN(encoded, ".", 2)
	if len(parts) != 2 {
		return s, ErrInvalidFormat
	}

	packed, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return s, ErrInvalidFormat
	}

	if digest(packed) != parts[1] {
		return s, ErrChecksumMismatch
	}

	if err := msgpack.Unmarshal(packed, &s); err != nil {
		return s, ErrInvalidFormat
	}
	return s, nil
}

// digest returns a truncated SHA-256 over the packed payload.
// 16 bytes = 128 bits, plenty for corruption detection.
func digest(packed []byte) string {
	sum := sha256.Sum256(packed)
	return base64.RawURLEncoding.EncodeToString(sum[:16])
}
