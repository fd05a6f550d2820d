package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"unicode"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// rootCmd starts the interactive shell
var rootCmd = &cobra.Command{
	Use:   "bluerepl [preset-file]",
	Short: "Interactive Bluetooth Low Energy shell",
	Long: `Interactive Bluetooth Low Energy (BLE) shell that provides:

- Scan, connect and disconnect peripherals
- Read, write, notify and indicate characteristics
- Inspect the adapter and the GATT profile of the connected peripheral
- Presets: name services and characteristics, define commands and timed functions,
  and connect automatically on startup

Preset files may be YAML (.yaml, .yml), TOML (.toml) or JSON (.json).`,
	Args:    cobra.MaximumNArgs(1),
	Version: formatVersion(version),
	RunE:    runShell,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
		stop()
		os.Exit(1)
	}
}

func init() {
	// Silence Cobra's "Error:" prefix - main() prints clean errors
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	rootCmd.SetVersionTemplate(fmt.Sprintf("bluerepl {{.Version}} (commit %s, built %s)\n", commit, date))

	rootCmd.Flags().BoolP("autoconnect", "a", false, "Connect to the preset device before the first prompt")
	rootCmd.Flags().StringP("ble-lib", "b", "", "BLE library (default go-ble)")
	rootCmd.Flags().String("history", "", "History file (default .history.txt)")
	rootCmd.Flags().Bool("verbose", false, "Enable debug logging")

	// Global flags
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")

	// Add -v as a short flag for --version
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
}
