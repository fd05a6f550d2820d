// Package payload decodes the textual payloads typed at the prompt or stored
// in presets into the bytes written to a characteristic.
//
// Accepted forms, tokens separated by whitespace and/or commas:
//
//	0x0102 0X1    hex, odd length left-padded with 0
//	0b101         binary, at most 8 bits
//	0102          bare hex pairs
//	[1, 2, 0xff]  list: bare tokens are decimal bytes
//	'text' "text" UTF-8 bytes of the quoted text
//
// Outside a list a bare token is always hex, so single digits need a 0x
// prefix or a list: "1 2" is rejected, "0x1 0x2" and "[1 2]" are [0x01 0x02].
package payload

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidPayload is matched by every *DecodeError.
var ErrInvalidPayload = errors.New("invalid payload")

// DecodeError reports the token that could not be decoded.
type DecodeError struct {
	Input  string
	Token  string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Token == "" || e.Token == e.Input {
		return fmt.Sprintf("invalid payload %q: %s", e.Input, e.Reason)
	}
	return fmt.Sprintf("invalid payload %q: token %q: %s", e.Input, e.Token, e.Reason)
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrInvalidPayload
}

// Decode converts s into bytes.
func Decode(s string) ([]byte, error) {
	input := strings.TrimSpace(s)
	if input == "" {
		return nil, &DecodeError{Input: s, Reason: "empty payload"}
	}

	if text, ok := unquote(input); ok {
		if text == "" {
			return nil, &DecodeError{Input: s, Reason: "empty text"}
		}
		return []byte(text), nil
	}

	decimal := false
	body := input
	if strings.HasPrefix(body, "[") {
		if !strings.HasSuffix(body, "]") {
			return nil, &DecodeError{Input: s, Reason: "unterminated list"}
		}
		body = body[1 : len(body)-1]
		decimal = true
	}

	tokens := strings.FieldsFunc(body, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(tokens) == 0 {
		return nil, &DecodeError{Input: s, Reason: "empty payload"}
	}

	var out []byte
	for _, tok := range tokens {
		b, reason := decodeToken(tok, decimal)
		if reason != "" {
			return nil, &DecodeError{Input: s, Token: tok, Reason: reason}
		}
		out = append(out, b...)
	}
	return out, nil
}

func unquote(s string) (string, bool) {
	if len(s) < 2 {
		return "", false
	}
	q := s[0]
	if (q != '\'' && q != '"') || s[len(s)-1] != q {
		return "", false
	}
	return s[1 : len(s)-1], true
}

// decodeToken returns a non-empty reason when tok is malformed.
func decodeToken(tok string, decimal bool) ([]byte, string) {
	lower := strings.ToLower(tok)
	switch {
	case strings.HasPrefix(lower, "0x"):
		digits := lower[2:]
		if digits == "" {
			return nil, "missing hex digits"
		}
		if len(digits)%2 == 1 {
			digits = "0" + digits
		}
		b, err := hex.DecodeString(digits)
		if err != nil {
			return nil, "invalid hex digits"
		}
		return b, ""

	case strings.HasPrefix(lower, "0b"):
		digits := lower[2:]
		if digits == "" {
			return nil, "missing binary digits"
		}
		if len(digits) > 8 {
			return nil, "binary value wider than 8 bits"
		}
		v, err := strconv.ParseUint(digits, 2, 8)
		if err != nil {
			return nil, "invalid binary digits"
		}
		return []byte{byte(v)}, ""

	case decimal:
		v, err := strconv.ParseUint(tok, 10, 8)
		if err != nil {
			return nil, "not a decimal byte (0-255)"
		}
		return []byte{byte(v)}, ""

	default:
		if len(tok)%2 == 1 {
			return nil, "odd number of hex digits"
		}
		b, err := hex.DecodeString(tok)
		if err != nil {
			return nil, "invalid hex digits"
		}
		return b, ""
	}
}
