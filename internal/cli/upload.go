package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/stockroom-go/internal/client"
	"github.com/raphaelgruber/stockroom-go/internal/models"
)

// defaultStatsFile is where commands drop the final job stats unless
// told otherwise.
const defaultStatsFile = ".stockroom-stats.json"

var (
	uploadEntity    string
	uploadRef       string
	uploadChunkSize int
	uploadStatsOut  string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Attach files to an inventory record",
	Long: `Upload one or more files as attachments of an inventory record.
A file with the same name as an existing attachment replaces it.

Examples:
  stockroom upload ./datasheet.pdf --entity item --ref PUMP-100
  stockroom upload ./photos/*.jpg --entity individual --ref PRJ-2031/17`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadEntity, "entity", "", "entity type the files attach to (item, individual)")
	uploadCmd.Flags().StringVar(&uploadRef, "ref", "", "natural key of the record the files attach to")
	uploadCmd.Flags().IntVar(&uploadChunkSize, "chunk-size", client.DefaultUploadChunkSize, "files per request")
	uploadCmd.Flags().StringVar(&uploadStatsOut, "stats-out", defaultStatsFile, "file the final job stats are written to")
}

func runUpload(cmd *cobra.Command, args []string) error {
	if uploadEntity == "" {
		return fmt.Errorf("--entity is required")
	}

	label := fmt.Sprintf("upload to %s", uploadEntity)
	stats, runErr := runWithProgress(cmd.Context(), label, func(ctx context.Context, onProgress func(models.Stats)) (models.Stats, error) {
		return apiClient.RunUpload(ctx, uploadEntity, uploadRef, args, uploadChunkSize, onProgress)
	})

	if err := saveStats(uploadStatsOut, stats); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	return runErr
}

// saveStats writes the job stats to a file the errors command (and a
// resumed run) can read back.
func saveStats(path string, stats models.Stats) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write stats to %s: %w", path, err)
	}
	return nil
}

// loadStats reads a stats file written by a previous run.
func loadStats(path string) (models.Stats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Stats{}, fmt.Errorf("read stats from %s: %w", path, err)
	}
	var stats models.Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		return models.Stats{}, fmt.Errorf("parse stats from %s: %w", path, err)
	}
	return stats, nil
}
