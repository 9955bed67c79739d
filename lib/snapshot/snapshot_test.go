package snapshot

import (
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := Snapshot{
		URL:          "/todos?status=pending",
		Content:      `<div id="list"><span>one</span></div>`,
		ScrollTarget: "list",
		ScrollPos:    "top",
		Timestamp:    1724490000000,
	}

	encoded, err := Encode(s)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if decoded != s {
		t.Errorf("Decode() = %+v, want %+v", decoded, s)
	}
}

func TestDecodeInvalidFormat(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{"empty", ""},
		{"no separator", "abcdef"},
		{"bad base64", "!!!.digest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.encoded); err != ErrInvalidFormat {
				t.Errorf("Decode(%q) error = %v, want ErrInvalidFormat", tt.encoded, err)
			}
		})
	}
}

func TestDecodeChecksumMismatch(t *testing.T) {
	encoded, err := Encode(Snapshot{URL: "/a", Content: "<p>hi</p>", Timestamp: 1})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	// Flip a payload character; digest no longer matches.
	i := strings.IndexByte(encoded, '.')
	tampered := "A" + encoded[1:i] + encoded[i:]
	if encoded[0] == 'A' {
		tampered = "B" + encoded[1:i] + encoded[i:]
	}

	if _, err := Decode(tampered); err != ErrChecksumMismatch && err != ErrInvalidFormat {
		t.Errorf("Decode(tampered) error = %v, want checksum or format error", err)
	}
}
