// Package codecx canonicalizes the historical on-disk encodings of
// ciphertext and IV values into a single lowercase hex representation.
//
// Three forms exist in the wild and are tried in a fixed order so results
// are deterministic:
//
//  1. plain hex — the value already is the hex string;
//  2. escape-prefixed binary text (`\x...`) — the hex payload decodes to the
//     ASCII characters of the real hex string (double-encoded legacy rows);
//  3. a JSON byte-values form (`[104,101,...]`, `{"type":"Buffer","data":[...]}`
//     or an object with numeric string keys) whose bytes, read as ASCII,
//     spell the real hex string.
//
// New format variants belong here, not at call sites.
package codecx

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/stackdeck/credvault/internal/common"
)

// binaryTextPrefix is the escape marker produced by the relational store's
// textual rendering of binary columns.
const binaryTextPrefix = `\x`

var hexPattern = regexp.MustCompile(`^[0-9a-fA-F]+$`)

// Normalize canonicalizes a stored ciphertext/IV value to lowercase hex.
// Values that match none of the known encodings fail with an error wrapping
// common.ErrFormat.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty value", common.ErrFormat)
	}

	// 1: already plain hex
	if hexPattern.MatchString(raw) {
		return strings.ToLower(raw), nil
	}

	// 2: escape-prefixed, one extra hex layer to unwrap
	if s, ok := unwrapBinaryText(raw); ok {
		return strings.ToLower(s), nil
	}

	// 3: JSON byte values spelling the hex string in ASCII
	if s, ok := unwrapByteValues(raw); ok {
		return strings.ToLower(s), nil
	}

	return "", fmt.Errorf("%w: value matches no known encoding", common.ErrFormat)
}

func unwrapBinaryText(raw string) (string, bool) {
	payload, found := strings.CutPrefix(raw, binaryTextPrefix)
	if !found || !hexPattern.MatchString(payload) || len(payload)%2 != 0 {
		return "", false
	}

	decoded := make([]byte, len(payload)/2)
	for i := 0; i < len(decoded); i++ {
		hi := hexDigit(payload[2*i])
		lo := hexDigit(payload[2*i+1])
		decoded[i] = hi<<4 | lo
	}

	s := string(decoded)
	if !hexPattern.MatchString(s) {
		return "", false
	}
	return s, true
}

func hexDigit(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// unwrapByteValues handles the serialized-buffer shapes: a bare JSON array,
// the {"type":"Buffer","data":[...]} wrapper, and an object keyed by the
// decimal string index of each byte.
func unwrapByteValues(raw string) (string, bool) {
	if !strings.HasPrefix(raw, "[") && !strings.HasPrefix(raw, "{") {
		return "", false
	}

	var values []int

	switch {
	case strings.HasPrefix(raw, "["):
		if err := json.Unmarshal([]byte(raw), &values); err != nil {
			return "", false
		}

	default:
		var wrapper struct {
			Data []int `json:"data"`
		}
		if err := json.Unmarshal([]byte(raw), &wrapper); err == nil && len(wrapper.Data) > 0 {
			values = wrapper.Data
			break
		}

		var indexed map[string]int
		if err := json.Unmarshal([]byte(raw), &indexed); err != nil {
			return "", false
		}
		for i := 0; ; i++ {
			v, ok := indexed[strconv.Itoa(i)]
			if !ok {
				break
			}
			values = append(values, v)
		}
		if len(values) != len(indexed) {
			return "", false
		}
	}

	if len(values) == 0 {
		return "", false
	}

	bytes := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return "", false
		}
		bytes[i] = byte(v)
	}

	s := string(bytes)
	if !hexPattern.MatchString(s) {
		return "", false
	}
	return s, true
}
