package goble

import (
	"fmt"
	"strings"

	"github.com/srg/bluerepl/internal/device"
)

// errorPatterns maps lowercase fragments of go-ble and platform messages to
// connection states. The first match wins.
var errorPatterns = []struct {
	fragment string
	target   error
}{
	{"have=4 want=5", device.ErrBluetoothOff},
	{"bluetooth is turned off", device.ErrBluetoothOff},
	{"device not connected", device.ErrNotConnected},
	{"disconnected", device.ErrNotConnected},
	{"device already connected", device.ErrAlreadyConnected},
}

// NormalizeError wraps err with the matching device.ConnectionError sentinel,
// keeping the backend message. Unknown errors are returned unchanged.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}

	msg := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(msg, p.fragment) {
			return fmt.Errorf("%w: %v", p.target, err)
		}
	}
	return err
}
