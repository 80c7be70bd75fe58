package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Properties string
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid        bool   `json:"valid"`
	SuiteID      string `json:"suite_id"`
	Cases        int    `json:"cases"`
	Steps        int    `json:"steps"`
	CacheBackend string `json:"cache_backend"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <suite.yaml>",
		Short: "Validate a suite and its properties without running it",
		Long: `Validate a suite definition and the active properties.

Checks YAML syntax, unknown fields, ids, thresholds and the properties
schema. Nothing is executed and no cache is touched.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Properties, "props", "", "path to properties file (default: stepwise.yaml next to the suite)")

	return cmd
}

func runValidate(opts *ValidateOptions, suitePath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	s, err := loadSuite(formatter, suitePath)
	if err != nil {
		return err
	}
	formatter.VerboseLog("Loaded suite %s with %d case(s)", s.ID, len(s.Cases))

	props, err := loadProperties(formatter, opts.Properties, s)
	if err != nil {
		return err
	}

	result := ValidationResult{
		Valid:        true,
		SuiteID:      s.ID,
		Cases:        len(s.Cases),
		CacheBackend: props.CacheBackend,
	}
	for _, c := range s.Cases {
		result.Steps += len(c.Steps)
		if c.Folder == "" {
			formatter.VerboseLog("case %s has no folder and will fail at run time", c.ID)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Suite %s valid (%d cases, %d steps, cache: %s)\n",
		result.SuiteID, result.Cases, result.Steps, result.CacheBackend)
	return nil
}
