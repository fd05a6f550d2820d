package repl

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/srg/bluerepl/internal/bytefmt"
	"github.com/srg/bluerepl/internal/device"
	"github.com/srg/bluerepl/internal/payload"
	"github.com/srg/bluerepl/internal/preset"
)

// newRootCmd builds the command tree for one input line.
func (s *Session) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bluerepl",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(s.out)
	root.SetErr(s.out)

	root.AddCommand(
		s.scanCmd(),
		s.connectCmd(),
		s.disconnectCmd(),
		s.readCmd(),
		s.writeCmd(),
		s.subscriptionCmd("notify", "Subscribe to notifications of a characteristic", s.ctrl.Notify),
		s.subscriptionCmd("indicate", "Subscribe to indications of a characteristic", s.ctrl.Indicate),
		s.subscriptionCmd("unsubscribe", "Cancel a notify or indicate subscription", s.ctrl.Unsubscribe),
		s.infoCmd(),
		s.runCmd(),
		s.functionCmd(),
		s.clearCmd(),
		s.quitCmd(),
	)
	return root
}

func (s *Session) requireConnection() error {
	if !s.ctrl.IsConnected() {
		return device.ErrNotConnected
	}
	return nil
}

// resolve maps preset names to UUIDs; unknown references pass through as UUIDs.
func (s *Session) resolve(serviceRef, charRef string) (string, string) {
	return s.preset.ResolveService(serviceRef), s.preset.ResolveCharacteristic(serviceRef, charRef)
}

func (s *Session) scanCmd() *cobra.Command {
	var showAll, listOnly bool

	cmd := &cobra.Command{
		Use:   "scan [timeout-seconds]",
		Short: "Scan for BLE peripherals",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if listOnly {
				return s.printScanList(s.ctrl.ScanList(), showAll)
			}

			timeout := s.cfg.ScanTimeout
			if len(args) == 1 {
				secs, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid timeout %q: expected a number of seconds", args[0])
				}
				timeout = time.Duration(secs) * time.Second
			}

			fmt.Fprintf(s.out, "Scanning for %s...\n", timeout)
			if err := s.ctrl.Scan(cmd.Context(), timeout); err != nil {
				return err
			}
			return s.printScanList(s.ctrl.ScanList(), showAll)
		},
	}
	cmd.Flags().BoolVarP(&showAll, "all", "a", false, "Include peripherals without a name")
	cmd.Flags().BoolVarP(&listOnly, "list", "l", false, "Print the last scan list without scanning")
	return cmd
}

func (s *Session) connectCmd() *cobra.Command {
	var name, address string
	var index int

	cmd := &cobra.Command{
		Use:   "connect [identifier]",
		Short: "Connect to a scanned peripheral by index, address or name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			targets := 0
			for _, set := range []bool{len(args) == 1, name != "", address != "", index >= 0} {
				if set {
					targets++
				}
			}
			if targets != 1 {
				return errors.New("specify exactly one of: identifier, --name, --mac or --index")
			}

			var err error
			switch {
			case name != "":
				err = device.ConnectByName(ctx, s.ctrl, name)
			case address != "":
				err = device.ConnectByAddress(ctx, s.ctrl, address)
			case index >= 0:
				err = device.ConnectByIndex(ctx, s.ctrl, index)
			default:
				err = device.ConnectAuto(ctx, s.ctrl, args[0])
			}
			if err != nil {
				return err
			}

			peer, _ := s.ctrl.Connected()
			fmt.Fprintf(s.out, "Connected to %s (%s)\n", peer.DisplayName(), peer.Address)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Peripheral name")
	cmd.Flags().StringVarP(&address, "mac", "m", "", "Peripheral address")
	cmd.Flags().IntVarP(&index, "index", "i", -1, "Index in the scan list")
	return cmd
}

func (s *Session) disconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Disconnect from the connected peripheral",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.requireConnection(); err != nil {
				return err
			}
			if err := s.ctrl.Disconnect(); err != nil {
				return err
			}
			fmt.Fprintln(s.out, "Disconnected")
			return nil
		},
	}
}

func (s *Session) readCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "read <service> <characteristic>",
		Short: "Read a characteristic value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !bytefmt.IsValid(format) {
				return fmt.Errorf("invalid format %q", format)
			}
			if err := s.requireConnection(); err != nil {
				return err
			}

			svc, char := s.resolve(args[0], args[1])
			data, err := s.ctrl.Read(svc, char)
			if err != nil {
				return err
			}
			value, err := bytefmt.Format(data, format)
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "%s: %s\n", args[1], value)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", bytefmt.Hex, "Output format (bin, dec, hex, text, hexdump)")
	return cmd
}

func (s *Session) writeCmd() *cobra.Command {
	var noResponse bool

	cmd := &cobra.Command{
		Use:   "write <service> <characteristic> <payload...>",
		Short: "Write a payload to a characteristic",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.requireConnection(); err != nil {
				return err
			}

			data, err := payload.Decode(strings.Join(args[2:], " "))
			if err != nil {
				return err
			}
			svc, char := s.resolve(args[0], args[1])
			return s.ctrl.Write(svc, char, data, !noResponse)
		},
	}
	cmd.Flags().BoolVarP(&noResponse, "noresp", "n", false, "Write without response")
	return cmd
}

func (s *Session) subscriptionCmd(use, short string, op func(serviceUUID, charUUID string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <service> <characteristic>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.requireConnection(); err != nil {
				return err
			}
			svc, char := s.resolve(args[0], args[1])
			return op(svc, char)
		},
	}
}

func (s *Session) infoCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:       "info adapter|gatt|preset",
		Short:     "Show adapter, GATT profile or preset information",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"adapter", "gatt", "preset"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "adapter":
				return s.printAdapter(asJSON)
			case "gatt":
				if err := s.requireConnection(); err != nil {
					return err
				}
				services, err := s.ctrl.Services()
				if err != nil {
					return err
				}
				peer, _ := s.ctrl.Connected()
				return s.printGATT(peer, services, asJSON)
			case "preset":
				if s.preset == nil {
					return preset.ErrNoPreset
				}
				if asJSON {
					return s.preset.Export(s.out, preset.JSON)
				}
				return s.preset.Print(s.out)
			default:
				return fmt.Errorf("unknown info topic %q (expected adapter, gatt or preset)", args[0])
			}
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func (s *Session) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <command>",
		Short: "Run a preset command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.Runner().RunCommand(cmd.Context(), s.ctrl, args[0])
		},
	}
}

func (s *Session) functionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "function <name>",
		Aliases: []string{"fn"},
		Short:   "Run a preset function",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.Runner().RunFunction(cmd.Context(), s.ctrl, args[0])
		},
	}
}

func (s *Session) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the screen",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(s.out, "\033[2J\033[H")
		},
	}
}

func (s *Session) quitCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "quit",
		Aliases: []string{"exit"},
		Short:   "Leave the shell",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return errQuit
		},
	}
}
