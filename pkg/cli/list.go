package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getmockd/stubd/pkg/cli/internal/output"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the stubs loaded in a running server",
	Example: `  stubd list
  stubd list --json
  stubd list --admin-url http://remote:8889`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(cmd.OutOrStdout(), NewAdminClient(adminURL))
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(out io.Writer, client AdminClient) error {
	stubs, err := client.ListStubs()
	if err != nil {
		return errors.New(FormatConnectionError(err))
	}
	stats, err := client.Stats()
	if err != nil {
		return errors.New(FormatConnectionError(err))
	}

	if jsonOutput {
		type listedStub struct {
			StubSummary
			Hits int64 `json:"hits"`
		}
		listed := make([]listedStub, 0, len(stubs))
		for _, s := range stubs {
			listed = append(listed, listedStub{StubSummary: s, Hits: stats[s.ResourceID]})
		}
		return output.JSON(out, listed)
	}

	if len(stubs) == 0 {
		fmt.Fprintln(out, "No stubs loaded")
		return nil
	}

	w := output.Table(out)
	output.Header(w, "id", "uuid", "method", "url", "responses", "hits")
	for _, s := range stubs {
		method := strings.Join(s.Request.Method, ",")
		if method == "" {
			method = "*"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\n",
			s.ResourceID, orDash(s.UUID), method, s.Request.URL, joinInts(s.Statuses()), stats[s.ResourceID])
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
