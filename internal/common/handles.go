package common

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// EncodeKey returns the canonical base64 subscription key for one
// (session, action, params fingerprint) triple, of the form:
//
//	"a91f…|itemsList|{\"limit\":10}"
//
// The fingerprint must already be canonical JSON (see reactive.Fingerprint);
// session ids and action names never contain '|'.
func EncodeKey(session, name, fingerprint string) string {
	raw := fmt.Sprintf("%s|%s|%s", session, name, fingerprint)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeKey parses a base64 subscription key in the same format.
func DecodeKey(k string) (session, name, fingerprint string, err error) {
	b, err := base64.RawURLEncoding.DecodeString(k)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid base64: %w", err)
	}

	parts := strings.SplitN(string(b), "|", 3)
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("malformed key")
	}
	return parts[0], parts[1], parts[2], nil
}
