package device

import (
	"context"
	"strconv"
	"strings"
)

// ConnectByName connects to the first scan-list peripheral advertising exactly name.
func ConnectByName(ctx context.Context, c Controller, name string) error {
	for _, p := range c.ScanList() {
		if p.Name == name {
			return c.Connect(ctx, p.Address)
		}
	}
	return &NotFoundError{Resource: "peripheral", UUIDs: []string{name}}
}

// ConnectByAddress connects to the scan-list peripheral with the given address.
// Addresses compare case-insensitively.
func ConnectByAddress(ctx context.Context, c Controller, address string) error {
	for _, p := range c.ScanList() {
		if strings.EqualFold(p.Address, address) {
			return c.Connect(ctx, p.Address)
		}
	}
	return &NotFoundError{Resource: "peripheral", UUIDs: []string{address}}
}

// ConnectByIndex connects to the scan-list peripheral with the given id.
func ConnectByIndex(ctx context.Context, c Controller, id int) error {
	for _, p := range c.ScanList() {
		if p.ID == id {
			return c.Connect(ctx, p.Address)
		}
	}
	return &NotFoundError{Resource: "peripheral", UUIDs: []string{strconv.Itoa(id)}}
}

// ConnectAuto guesses what identifier is: a decimal number is a scan-list index,
// an exact address match is an address, anything else is a name.
func ConnectAuto(ctx context.Context, c Controller, identifier string) error {
	if id, err := strconv.Atoi(identifier); err == nil {
		return ConnectByIndex(ctx, c, id)
	}
	for _, p := range c.ScanList() {
		if strings.EqualFold(p.Address, identifier) {
			return c.Connect(ctx, p.Address)
		}
	}
	return ConnectByName(ctx, c, identifier)
}
