// Package cli implements the warchief command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
)

var rootCmd = &cobra.Command{
	Use:   "warchief",
	Short: "Macro playback server",
	Long: `warchief plays per-character combat macros on a fixed tick.

  warchief serve                  Run the simulation and websocket server
  warchief validate macros/*.yaml Check macro files against the ability catalog
  warchief estimate burst.yaml    Print the estimated duration of a macro`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// colorize wraps text in an ANSI color when w is a terminal.
func colorize(w io.Writer, color, text string) string {
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return color + text + colorReset
	}
	return text
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
