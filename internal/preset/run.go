package preset

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/bluerepl/internal/bytefmt"
	"github.com/srg/bluerepl/internal/device"
	"github.com/srg/bluerepl/internal/payload"
)

// Runner executes preset commands and functions against a controller.
// Progress lines and read values go to out.
type Runner struct {
	preset *Preset
	out    io.Writer
	logger *logrus.Logger
}

// NewRunner creates a runner; p may be nil, in which case every run fails with ErrNoPreset.
func NewRunner(p *Preset, out io.Writer, logger *logrus.Logger) *Runner {
	return &Runner{preset: p, out: out, logger: logger}
}

// Preset returns the preset the runner executes, possibly nil.
func (r *Runner) Preset() *Preset {
	return r.preset
}

// RunCommand performs the single controller operation of the named command.
// Controller errors are returned as is.
func (r *Runner) RunCommand(_ context.Context, ctrl device.Controller, name string) error {
	if r.preset == nil {
		return ErrNoPreset
	}
	cmd, ok := r.preset.Command(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrCommandNotFound, name)
	}

	svcUUID, ok := r.preset.ServiceUUID(cmd.Service)
	if !ok {
		return &ValidationError{Rule: RuleUnknownService, Command: name}
	}
	charUUID, ok := r.preset.CharacteristicUUID(cmd.Service, cmd.Characteristic)
	if !ok {
		return &ValidationError{Rule: RuleUnknownCharacteristic, Command: name}
	}

	r.logger.WithFields(logrus.Fields{
		"command":   name,
		"type":      cmd.Kind,
		"service":   svcUUID,
		"char_uuid": charUUID,
	}).Debug("Running preset command")

	switch cmd.Kind {
	case KindWrite, KindWriteWithResp:
		var raw string
		if cmd.Payload != nil {
			raw = *cmd.Payload
		}
		data, err := payload.Decode(raw)
		if err != nil {
			return err
		}
		return ctrl.Write(svcUUID, charUUID, data, cmd.Kind == KindWriteWithResp)

	case KindRead:
		data, err := ctrl.Read(svcUUID, charUUID)
		if err != nil {
			return err
		}
		format := cmd.Format
		if format == "" {
			format = bytefmt.Hex
		}
		value, err := bytefmt.Format(data, string(format))
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(r.out, "%s: %s\n", cmd.Characteristic, value)
		return nil

	case KindNotify:
		return ctrl.Notify(svcUUID, charUUID)
	case KindIndicate:
		return ctrl.Indicate(svcUUID, charUUID)
	case KindUnsubscribe:
		return ctrl.Unsubscribe(svcUUID, charUUID)
	default:
		return &ValidationError{Rule: RuleCommandType, Command: name, Detail: fmt.Sprintf("%q", cmd.Kind)}
	}
}

// RunFunction runs the steps of the named function in order, waiting the
// step's delay after each one, the last included. The first failing step
// aborts the sequence and its error is returned as is.
func (r *Runner) RunFunction(ctx context.Context, ctrl device.Controller, name string) error {
	if r.preset == nil {
		return ErrNoPreset
	}
	fn, ok := r.preset.Function(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrFunctionNotFound, name)
	}

	for i, step := range fn.Commands {
		_, _ = fmt.Fprintf(r.out, "Running %s ...\n", step)
		if err := r.RunCommand(ctx, ctrl, step); err != nil {
			r.logger.WithFields(logrus.Fields{
				"function": name,
				"step":     i,
				"command":  step,
				"error":    err,
			}).Debug("Function step failed")
			return err
		}

		delay := fn.DelaysMs[i]
		_, _ = fmt.Fprintf(r.out, "Waiting %d ms\n", delay)
		if err := wait(ctx, delayDuration(delay)); err != nil {
			return err
		}
	}
	return nil
}

// maxDelayMs is the largest millisecond delay a time.Duration can hold.
const maxDelayMs = uint64(math.MaxInt64 / int64(time.Millisecond))

// delayDuration converts ms to a Duration, saturating instead of wrapping.
func delayDuration(ms uint64) time.Duration {
	if ms > maxDelayMs {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ms) * time.Millisecond
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Autoconnect scans for scanTimeout and connects to the preset's device,
// by name when one is set, otherwise by address.
func (r *Runner) Autoconnect(ctx context.Context, ctrl device.Controller, scanTimeout time.Duration) error {
	if r.preset == nil {
		return ErrNoPreset
	}
	if !r.preset.AutoconnectPossible() {
		return &ValidationError{Rule: RuleDeviceTarget, Detail: "a name or an address is required to autoconnect"}
	}
	dev := r.preset.Device

	r.logger.WithFields(logrus.Fields{
		"name":    dev.Name,
		"address": dev.Address,
		"timeout": scanTimeout,
	}).Info("Autoconnecting")

	if err := ctrl.Scan(ctx, scanTimeout); err != nil {
		return err
	}
	if dev.Name != "" {
		return device.ConnectByName(ctx, ctrl, dev.Name)
	}
	return device.ConnectByAddress(ctx, ctrl, dev.Address)
}
