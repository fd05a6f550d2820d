// Package bytefmt renders characteristic values for display.
package bytefmt

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	Bin     = "bin"
	Dec     = "dec"
	Hex     = "hex"
	Text    = "text"
	Hexdump = "hexdump"
)

const bytesPerLine = 16

// Formats lists every format Format accepts.
func Formats() []string {
	return []string{Bin, Dec, Hex, Text, Hexdump}
}

// IsValid reports whether f is one of Formats.
func IsValid(f string) bool {
	for _, known := range Formats() {
		if f == known {
			return true
		}
	}
	return false
}

// Format renders data in format f.
func Format(data []byte, f string) (string, error) {
	switch f {
	case Bin:
		return list(data, func(b byte) string { return "0b" + strconv.FormatUint(uint64(b), 2) }), nil
	case Dec:
		return list(data, func(b byte) string { return strconv.Itoa(int(b)) }), nil
	case Hex:
		return list(data, func(b byte) string { return fmt.Sprintf("0x%02x", b) }), nil
	case Text:
		if !utf8.Valid(data) {
			return "Invalid string", nil
		}
		return string(data), nil
	case Hexdump:
		return hexdump(data), nil
	default:
		return "", fmt.Errorf("unknown format %q (expected one of: %s)", f, strings.Join(Formats(), ", "))
	}
}

func list(data []byte, item func(byte) string) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, b := range data {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(item(b))
	}
	sb.WriteByte(']')
	return sb.String()
}

// hexdump writes one line per 16 bytes: offset, hex bytes, printable ASCII.
func hexdump(data []byte) string {
	var lines []string
	for off := 0; off < len(data); off += bytesPerLine {
		end := off + bytesPerLine
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]

		hexParts := make([]string, len(chunk))
		ascii := make([]byte, len(chunk))
		for i, b := range chunk {
			hexParts[i] = fmt.Sprintf("%02x", b)
			if b >= 0x20 && b < 0x7f {
				ascii[i] = b
			} else {
				ascii[i] = '.'
			}
		}
		lines = append(lines, fmt.Sprintf("%08x: %s | %s", off, strings.Join(hexParts, " "), ascii))
	}
	return strings.Join(lines, "\n")
}
