package device

import "github.com/srg/bluerepl/internal/bledb"

// NormalizeUUID returns the comparison form of a UUID: lowercase hex without
// dashes or 0x prefix, with SIG-based 128-bit UUIDs shortened to 16 bits.
func NormalizeUUID(uuid string) string {
	return bledb.NormalizeUUID(uuid)
}

// CompareUUID reports whether a and b name the same attribute, so
// "2A19", "0x2a19" and "00002a19-0000-1000-8000-00805f9b34fb" are all equal.
// Empty strings never match.
func CompareUUID(a, b string) bool {
	na := NormalizeUUID(a)
	return na != "" && na == NormalizeUUID(b)
}
