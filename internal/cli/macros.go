package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"warchief/server/internal/abilities"
	"warchief/server/internal/macro"
	"warchief/server/internal/storage/yamlfs"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check macro files against the ability catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runValidate,
}

var estimateCmd = &cobra.Command{
	Use:   "estimate <file>",
	Short: "Print the estimated playback duration of a macro file",
	Args:  cobra.ExactArgs(1),
	RunE:  runEstimate,
}

func init() {
	estimateCmd.Flags().Duration("gcd", abilities.GlobalCooldown, "global cooldown charged per cast")
	rootCmd.AddCommand(validateCmd, estimateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	catalog := abilities.DefaultCatalog()
	failed := 0
	for _, path := range args {
		def, err := yamlfs.LoadFile(path)
		if err == nil {
			err = macro.Validate(def, catalog)
		}
		if err != nil {
			failed++
			printf(cmd, "%s %s: %v\n", colorize(cmd.OutOrStdout(), colorRed, "FAIL"), path, err)
			continue
		}
		printf(cmd, "%s %s (%s, %d steps)\n", colorize(cmd.OutOrStdout(), colorGreen, "ok"), path, def.Name, len(def.Steps))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d macro files invalid", failed, len(args))
	}
	return nil
}

func runEstimate(cmd *cobra.Command, args []string) error {
	gcd, err := cmd.Flags().GetDuration("gcd")
	if err != nil {
		return err
	}
	def, err := yamlfs.LoadFile(args[0])
	if err != nil {
		return err
	}
	seconds, bounded := def.EstimatedDuration(gcd.Seconds())
	if !bounded {
		printf(cmd, "%s: loops forever\n", def.ID)
		return nil
	}
	printf(cmd, "%s: %s over %d pass(es)\n", def.ID, time.Duration(seconds*float64(time.Second)).Round(time.Millisecond), def.Passes())
	return nil
}
