package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/bluerepl/internal/device"
	"github.com/srg/bluerepl/internal/devicefactory"
	"github.com/srg/bluerepl/internal/preset"
	"github.com/srg/bluerepl/internal/repl"
	"github.com/srg/bluerepl/pkg/config"
)

// newController is overridden in tests.
var newController = devicefactory.NewController

func runShell(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	logger, err := configureLogger(cmd, "verbose", cfg)
	if err != nil {
		return err
	}
	if lib, _ := cmd.Flags().GetString("ble-lib"); lib != "" {
		cfg.BLELib = lib
	}
	if history, _ := cmd.Flags().GetString("history"); history != "" {
		cfg.HistoryFile = history
	}
	forceAutoconnect, _ := cmd.Flags().GetBool("autoconnect")

	var presetPath string
	if len(args) == 1 {
		presetPath = args[0]
	}
	p, err := loadPreset(presetPath, forceAutoconnect)
	if err != nil {
		return err
	}

	ctrl, err := newController(cfg, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if err := bootstrap(ctx, p, forceAutoconnect, ctrl, cfg.AutoconnectScanTimeout, logger, out); err != nil {
		return err
	}
	defer func() {
		if ctrl.IsConnected() {
			if err := ctrl.Disconnect(); err != nil {
				logger.WithError(err).Warn("Disconnect on exit failed")
			}
		}
	}()

	return repl.NewSession(ctrl, p, cfg, logger, out).Run(ctx)
}

// loadPreset loads the preset at path, if any, and checks that a forced
// autoconnect has a target.
func loadPreset(path string, forceAutoconnect bool) (*preset.Preset, error) {
	if path == "" {
		if forceAutoconnect {
			return nil, ErrAutoconnectWithoutPreset
		}
		return nil, nil
	}

	p, err := preset.Load(path)
	if err != nil {
		return nil, err
	}
	if forceAutoconnect && !p.AutoconnectPossible() {
		return nil, &preset.ValidationError{
			Rule:   preset.RuleDeviceTarget,
			Detail: "--autoconnect requires a device name or address in the preset",
		}
	}
	return p, nil
}

// bootstrap connects to the preset device when the preset or the flag asks for it.
func bootstrap(ctx context.Context, p *preset.Preset, force bool, ctrl device.Controller, scanTimeout time.Duration, logger *logrus.Logger, out io.Writer) error {
	if p == nil || !(force || p.ShouldAutoconnect()) {
		return nil
	}

	if err := preset.NewRunner(p, out, logger).Autoconnect(ctx, ctrl, scanTimeout); err != nil {
		return err
	}
	peer, _ := ctrl.Connected()
	_, _ = fmt.Fprintf(out, "Connected to %s (%s)\n", peer.DisplayName(), peer.Address)
	return nil
}
