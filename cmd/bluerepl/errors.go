package main

import (
	"errors"
	"fmt"

	"github.com/srg/bluerepl/internal/device"
	"github.com/srg/bluerepl/internal/preset"
	"github.com/srg/bluerepl/internal/repl"
)

// Command-level errors
var (
	// ErrAutoconnectWithoutPreset is returned when --autoconnect is passed without a preset file.
	ErrAutoconnectWithoutPreset = errors.New("--autoconnect requires a preset file")
)

// FormatUserError turns startup errors into a single line for the terminal.
func FormatUserError(err error) string {
	var loadErr *preset.LoadError
	if errors.As(err, &loadErr) {
		return fmt.Sprintf("cannot load preset %s: %v", loadErr.Path, loadErr.Err)
	}

	var notFound *device.NotFoundError
	if errors.As(err, &notFound) && notFound.Resource == "peripheral" {
		return fmt.Sprintf("autoconnect failed: %s", notFound.Error())
	}

	return repl.FormatError(err)
}
