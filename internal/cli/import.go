package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/stockroom-go/internal/client"
	"github.com/raphaelgruber/stockroom-go/internal/models"
)

var (
	importChunkSize int
	importProject   string
	importStatsOut  string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import tabular inventory data from JSON exports",
}

var importItemsCmd = &cobra.Command{
	Use:   "items <file.json>",
	Short: "Import item master rows",
	Long: `Import item master rows from a JSON array of objects.

Each object needs at least part_no, name and manufacturer; rows already
present on the server (by part number) are skipped, not overwritten.

Examples:
  stockroom import items ./items.json
  stockroom import items ./items.json --chunk-size 100 --stats-out run.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd, client.KindItems, args[0])
	},
}

var importIndividualsCmd = &cobra.Command{
	Use:   "individuals <file.json>",
	Short: "Import serialized individuals for a project",
	Long: `Import individual (serial-tracked) rows for one project from a
JSON array of objects. Requires --project; the pair of project code and
individual number identifies a row.

Examples:
  stockroom import individuals ./serials.json --project PRJ-2031`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if importProject == "" {
			return fmt.Errorf("--project is required for individuals")
		}
		return runImport(cmd, client.KindIndividuals, args[0])
	},
}

func init() {
	importCmd.PersistentFlags().IntVar(&importChunkSize, "chunk-size", client.DefaultImportChunkSize, "rows per request")
	importCmd.PersistentFlags().StringVarP(&importProject, "project", "p", "", "project code (individuals only)")
	importCmd.PersistentFlags().StringVar(&importStatsOut, "stats-out", defaultStatsFile, "file the final job stats are written to")

	importCmd.AddCommand(importItemsCmd)
	importCmd.AddCommand(importIndividualsCmd)
}

func runImport(cmd *cobra.Command, kind client.ImportKind, path string) error {
	rows, err := loadRows(path)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("Nothing to import.")
		return nil
	}

	label := fmt.Sprintf("import %s", kind)
	stats, runErr := runWithProgress(cmd.Context(), label, func(ctx context.Context, onProgress func(models.Stats)) (models.Stats, error) {
		return apiClient.RunImport(ctx, kind, importProject, rows, importChunkSize, onProgress)
	})

	// Stats are written even when the run failed so it can be resumed
	// or its errors exported.
	if err := saveStats(importStatsOut, stats); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	return runErr
}

// loadRows reads a JSON array of flat objects into import rows. Every
// value is stringified for validation; the original object rides along
// for error snapshots.
func loadRows(path string) ([]models.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: expected a JSON array of objects: %w", path, err)
	}

	rows := make([]models.Row, 0, len(raw))
	for _, obj := range raw {
		fields := make(map[string]string, len(obj))
		for k, v := range obj {
			fields[k] = stringifyField(v)
		}
		rows = append(rows, models.Row{Fields: fields, Raw: obj})
	}
	return rows, nil
}

func stringifyField(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
