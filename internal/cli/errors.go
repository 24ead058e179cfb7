package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var errorsJSON bool

var errorsCmd = &cobra.Command{
	Use:   "errors [stats.json]",
	Short: "Show the error report of a finished run",
	Long: `Render the master/detail error report for a run's stats file:
one block per rejected unit with its recorded violations.

Defaults to the stats file the last import or upload wrote.

Examples:
  stockroom errors
  stockroom errors run.json --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runErrors,
}

func init() {
	errorsCmd.Flags().BoolVar(&errorsJSON, "json", false, "emit the report as JSON")
}

func runErrors(cmd *cobra.Command, args []string) error {
	path := defaultStatsFile
	if len(args) > 0 {
		path = args[0]
	}

	stats, err := loadStats(path)
	if err != nil {
		return err
	}
	if len(stats.Errors) == 0 {
		fmt.Println("No errors recorded.")
		return nil
	}

	report, err := apiClient.ErrorsReport(cmd.Context(), stats)
	if err != nil {
		return fmt.Errorf("build error report: %w", err)
	}

	if errorsJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("%-6s %-28s %-16s %s\n", "UNIT", "IDENTIFIER", "FIELD", "MESSAGE")
	for _, unit := range report.Units {
		for i, entry := range unit.Entries {
			num, ident := "", ""
			if i == 0 {
				num = fmt.Sprintf("%d", unit.UnitNumber)
				ident = unit.Identifier
			}
			field := "-"
			if entry.Field != nil {
				field = *entry.Field
			}
			fmt.Printf("%-6s %-28s %-16s %s\n", num, truncate(ident, 28), field, entry.Message)
		}
	}
	fmt.Printf("\n%d units rejected, %d violations\n", report.UnitCount, report.EntryCount)
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
