package repl

import (
	"errors"

	"github.com/srg/bluerepl/internal/device"
)

// FormatError turns an error into the short message shown to the user.
func FormatError(err error) string {
	var cerr *device.ConnectionError
	if errors.As(err, &cerr) {
		switch cerr.State {
		case device.NotConnected:
			return "You must be connected to a peripheral to run this command"
		case device.AlreadyConnected:
			return "Already connected to a peripheral, disconnect first"
		case device.BluetoothOff:
			return "Bluetooth adapter unavailable: is Bluetooth turned on?"
		}
	}
	return err.Error()
}
