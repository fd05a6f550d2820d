// Package repl implements the interactive bluerepl shell: a readline loop
// whose lines are parsed by a fresh cobra command tree and dispatched to the
// BLE controller or the preset runner.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/srg/bluerepl/internal/device"
	"github.com/srg/bluerepl/internal/groutine"
	"github.com/srg/bluerepl/internal/preset"
	"github.com/srg/bluerepl/pkg/config"
)

// errQuit is returned by the quit command to end the session.
var errQuit = errors.New("quit")

// Session is one interactive shell bound to a controller and an optional preset.
type Session struct {
	ctrl   device.Controller
	preset *preset.Preset
	cfg    *config.Config
	logger *logrus.Logger

	out    io.Writer
	colors bool
}

// NewSession creates a session writing to out. p may be nil.
func NewSession(ctrl device.Controller, p *preset.Preset, cfg *config.Config, logger *logrus.Logger, out io.Writer) *Session {
	return &Session{
		ctrl:   ctrl,
		preset: p,
		cfg:    cfg,
		logger: logger,
		out:    &lockedWriter{w: out},
	}
}

// SetColors toggles ANSI colors for errors and notifications.
func (s *Session) SetColors(enabled bool) {
	s.colors = enabled
}

// Runner returns a preset runner printing to the session output.
func (s *Session) Runner() *preset.Runner {
	return preset.NewRunner(s.preset, s.out, s.logger)
}

// Run reads lines until quit, EOF or ctx cancellation. Command errors are
// printed and the loop goes on.
func (s *Session) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.cfg.Prompt,
		HistoryFile:     s.cfg.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	s.out = &lockedWriter{w: rl.Stdout()}
	s.colors = term.IsTerminal(int(os.Stdout.Fd()))

	printerCtx, stopPrinter := context.WithCancel(ctx)
	defer stopPrinter()
	s.StartNotificationPrinter(printerCtx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			// EOF
			return nil
		}

		quit, err := s.Execute(ctx, line)
		if err != nil {
			s.PrintError(err)
		}
		if quit {
			return nil
		}
	}
}

// Execute runs a single input line. It reports whether the line asked to end the session.
func (s *Session) Execute(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return false, nil
	}

	args, err := shlex.Split(line)
	if err != nil {
		return false, fmt.Errorf("cannot parse line: %w", err)
	}
	if len(args) == 0 {
		return false, nil
	}

	s.logger.WithField("args", args).Debug("Executing line")

	root := s.newRootCmd()
	root.SetArgs(args)
	err = root.ExecuteContext(ctx)
	if errors.Is(err, errQuit) {
		return true, nil
	}
	return false, err
}

// PrintError writes err in red, or plain when colors are off.
func (s *Session) PrintError(err error) {
	c := color.New(color.FgRed)
	if s.colors {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	_, _ = c.Fprintln(s.out, FormatError(err))
}

// StartNotificationPrinter prints every controller notification until ctx is done.
func (s *Session) StartNotificationPrinter(ctx context.Context) {
	ch := s.ctrl.Notifications()
	groutine.Go(ctx, "notification-printer", func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-ch:
				if !ok {
					return
				}
				_, _ = fmt.Fprintln(s.out, s.formatNotification(n))
			}
		}
	})
}

// lockedWriter serializes writes from the prompt loop and the notification printer.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}
