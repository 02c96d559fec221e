package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/getmockd/stubd/pkg/cli/internal/output"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show stub hit counters from a running server",
	Long:  `Print resourceId,hits CSV lines for every stub that has been hit, or a JSON object with --json.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStats(cmd.OutOrStdout(), NewAdminClient(adminURL))
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(out io.Writer, client AdminClient) error {
	if jsonOutput {
		stats, err := client.Stats()
		if err != nil {
			return errors.New(FormatConnectionError(err))
		}
		return output.JSON(out, stats)
	}

	csv, err := client.StatsCSV()
	if err != nil {
		return errors.New(FormatConnectionError(err))
	}
	_, err = fmt.Fprint(out, csv)
	return err
}
