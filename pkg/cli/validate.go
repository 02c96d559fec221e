package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/getmockd/stubd/pkg/cli/internal/output"
	"github.com/getmockd/stubd/pkg/config"
	"github.com/getmockd/stubd/pkg/stub"
)

// ValidateResult is the outcome of validating one stub document.
type ValidateResult struct {
	File         string   `json:"file"`
	Valid        bool     `json:"valid"`
	Stubs        int      `json:"stubs"`
	ProxyConfigs int      `json:"proxyConfigs"`
	Files        []string `json:"files,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Validate stub documents without starting the server",
	Long: `Load each stub document the way serve does and report problems.

This command checks:
  - YAML syntax and property names
  - includes, file references and include cycles
  - duplicate uuids
  - proxy-config strategies and endpoints
  - response latencies`,
	Example: `  stubd validate stubs.yaml
  stubd validate --json stubs.yaml more.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd.OutOrStdout(), args)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// ErrValidationFailed is returned when at least one document is invalid.
var ErrValidationFailed = errors.New("validation failed")

func runValidate(out io.Writer, files []string) error {
	loader := config.NewLoader(nil)
	results := make([]ValidateResult, 0, len(files))
	failed := false
	for _, file := range files {
		r := validateFile(loader, file)
		failed = failed || !r.Valid
		results = append(results, r)
	}

	if jsonOutput {
		if err := output.JSON(out, results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			printValidateResult(out, r)
		}
	}
	if failed {
		return ErrValidationFailed
	}
	return nil
}

func validateFile(loader *config.Loader, file string) ValidateResult {
	r := ValidateResult{File: file}
	res, err := loader.LoadFile(file)
	if err != nil {
		r.Errors = append(r.Errors, err.Error())
		return r
	}
	r.Stubs = len(res.Lifecycles)
	r.ProxyConfigs = len(res.ProxyConfigs)
	r.Files = res.Files
	r.Errors = latencyErrors(res.Lifecycles)
	r.Valid = len(r.Errors) == 0
	return r
}

// latencyErrors reports latencies that would fail at serve time.
func latencyErrors(lifecycles []*stub.Lifecycle) []string {
	var errs []string
	for i, lc := range lifecycles {
		for j, resp := range lc.Responses {
			if _, err := resp.Delay(); err != nil {
				errs = append(errs, fmt.Sprintf("stub %d response %d: %v", i, j, err))
			}
		}
	}
	return errs
}

func printValidateResult(out io.Writer, r ValidateResult) {
	if r.Valid {
		fmt.Fprintf(out, "✓ %s: %d stubs, %d proxy configs", r.File, r.Stubs, r.ProxyConfigs)
		if n := len(r.Files); n > 1 {
			fmt.Fprintf(out, " across %d files", n)
		}
		fmt.Fprintln(out)
		return
	}
	fmt.Fprintf(out, "✗ %s\n", r.File)
	for _, e := range r.Errors {
		fmt.Fprintf(out, "  - %s\n", e)
	}
}
