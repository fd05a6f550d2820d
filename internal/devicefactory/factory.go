// Package devicefactory selects the BLE backend behind device.Controller.
package devicefactory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/srg/bluerepl/internal/device"
	goble "github.com/srg/bluerepl/internal/device/go-ble"
	"github.com/srg/bluerepl/pkg/config"
)

// Constructor builds a controller for one backend library.
type Constructor func(cfg *config.Config, logger *logrus.Logger) device.Controller

// Libraries maps a backend name to its constructor.
// This is a variable so that it can be overridden in tests.
var Libraries = map[string]Constructor{
	goble.LibraryName: func(cfg *config.Config, logger *logrus.Logger) device.Controller {
		return goble.NewController(logger, cfg.ConnectTimeout)
	},
}

// NewController creates the controller named by cfg.BLELib; empty selects go-ble.
func NewController(cfg *config.Config, logger *logrus.Logger) (device.Controller, error) {
	lib := cfg.BLELib
	if lib == "" {
		lib = goble.LibraryName
	}

	ctor, ok := Libraries[lib]
	if !ok {
		return nil, fmt.Errorf("unsupported BLE library %q (supported: %s)", lib, strings.Join(Supported(), ", "))
	}

	logger.WithField("ble_lib", lib).Debug("Creating BLE controller")
	return ctor(cfg, logger), nil
}

// Supported lists the backend names in sorted order.
func Supported() []string {
	names := make([]string, 0, len(Libraries))
	for name := range Libraries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
