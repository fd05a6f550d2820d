// Package bledb holds Bluetooth SIG assigned numbers used to give well-known
// services, characteristics and company identifiers a readable name.
//
// The tables are display-only: nothing in the preset engine depends on them.
package bledb

import (
	"strings"

	"github.com/google/uuid"
)

// sigBaseSuffix is the trailing part of the Bluetooth SIG base UUID
// (0000xxxx-0000-1000-8000-00805f9b34fb) without dashes.
const sigBaseSuffix = "00001000800000805f9b34fb"

// NormalizeUUID converts a UUID string to the internal lookup form: lowercase,
// no dashes, no braces, no 0x prefix. Full 128-bit UUIDs built on the
// Bluetooth SIG base are reduced to their 16-bit short form.
func NormalizeUUID(u string) string {
	s := strings.ToLower(strings.TrimSpace(u))
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	s = strings.TrimPrefix(s, "0x")
	s = strings.ReplaceAll(s, "-", "")

	if len(s) != 32 {
		return s
	}

	parsed, err := uuid.Parse(s)
	if err != nil {
		return s
	}
	canonical := strings.ReplaceAll(parsed.String(), "-", "")
	if strings.HasPrefix(canonical, "0000") && strings.HasSuffix(canonical, sigBaseSuffix) {
		return canonical[4:8]
	}
	return canonical
}

// LookupService returns the SIG name of a service UUID, or "" if unknown.
func LookupService(u string) string {
	return services[NormalizeUUID(u)]
}

// LookupCharacteristic returns the SIG name of a characteristic UUID, or "" if unknown.
func LookupCharacteristic(u string) string {
	return characteristics[NormalizeUUID(u)]
}

// LookupVendor returns the company name for a Bluetooth SIG company identifier.
func LookupVendor(id uint16) string {
	return vendors[id]
}
