package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/raphaelgruber/stockroom-go/internal/client"
	"github.com/raphaelgruber/stockroom-go/internal/models"
)

// Manifest describes a whole ingestion run: which files to import and
// which attachments to upload, executed in order. Paths are relative to
// the manifest file.
type Manifest struct {
	Project         string            `yaml:"project"`
	Items           string            `yaml:"items"`
	Individuals     string            `yaml:"individuals"`
	Attachments     []AttachmentBatch `yaml:"attachments"`
	ChunkSize       int               `yaml:"chunk_size"`
	UploadChunkSize int               `yaml:"upload_chunk_size"`
}

// AttachmentBatch is one upload target in a manifest.
type AttachmentBatch struct {
	Entity string   `yaml:"entity"`
	Ref    string   `yaml:"ref"`
	Files  []string `yaml:"files"`
}

var runStatsDir string

var runCmd = &cobra.Command{
	Use:   "run <manifest.yaml>",
	Short: "Run a whole ingestion manifest",
	Long: `Execute a YAML manifest describing a full ingestion run: item
import, individual import, then attachment uploads, in that order.
Phases with rejected units do not stop the run; a stats file per phase
is written for later inspection with 'stockroom errors'.

Example manifest:

  project: PRJ-2031
  items: ./items.json
  individuals: ./serials.json
  attachments:
    - entity: item
      ref: PUMP-100
      files: [./datasheet.pdf]`,
	Args: cobra.ExactArgs(1),
	RunE: runManifest,
}

func init() {
	runCmd.Flags().StringVar(&runStatsDir, "stats-dir", ".", "directory the per-phase stats files are written to")
}

func runManifest(cmd *cobra.Command, args []string) error {
	manifest, baseDir, err := loadManifest(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	rejected := 0

	if manifest.Items != "" {
		stats, err := runManifestImport(ctx, client.KindItems, "", filepath.Join(baseDir, manifest.Items), manifest.ChunkSize)
		writePhaseStats("items", stats)
		if err != nil {
			return fmt.Errorf("items phase: %w", err)
		}
		rejected += len(stats.Errors)
	}

	if manifest.Individuals != "" {
		if manifest.Project == "" {
			return fmt.Errorf("manifest needs a project code to import individuals")
		}
		stats, err := runManifestImport(ctx, client.KindIndividuals, manifest.Project, filepath.Join(baseDir, manifest.Individuals), manifest.ChunkSize)
		writePhaseStats("individuals", stats)
		if err != nil {
			return fmt.Errorf("individuals phase: %w", err)
		}
		rejected += len(stats.Errors)
	}

	for i, batch := range manifest.Attachments {
		paths := make([]string, 0, len(batch.Files))
		for _, f := range batch.Files {
			paths = append(paths, filepath.Join(baseDir, f))
		}

		label := fmt.Sprintf("upload to %s %s", batch.Entity, batch.Ref)
		stats, err := runWithProgress(ctx, label, func(ctx context.Context, onProgress func(models.Stats)) (models.Stats, error) {
			return apiClient.RunUpload(ctx, batch.Entity, batch.Ref, paths, manifest.UploadChunkSize, onProgress)
		})
		writePhaseStats(fmt.Sprintf("attachments-%d", i+1), stats)
		if err != nil {
			return fmt.Errorf("attachment phase %d: %w", i+1, err)
		}
		rejected += len(stats.Errors)
	}

	if rejected > 0 {
		return fmt.Errorf("run finished with %d rejected units, see the stats files in %s", rejected, runStatsDir)
	}
	fmt.Println("Run completed without errors.")
	return nil
}

func runManifestImport(ctx context.Context, kind client.ImportKind, project, path string, chunkSize int) (models.Stats, error) {
	rows, err := loadRows(path)
	if err != nil {
		return models.Stats{}, err
	}
	label := fmt.Sprintf("import %s", kind)
	return runWithProgress(ctx, label, func(ctx context.Context, onProgress func(models.Stats)) (models.Stats, error) {
		return apiClient.RunImport(ctx, kind, project, rows, chunkSize, onProgress)
	})
}

func loadManifest(path string) (*Manifest, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, "", fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, filepath.Dir(path), nil
}

func writePhaseStats(phase string, stats models.Stats) {
	path := filepath.Join(runStatsDir, fmt.Sprintf("stockroom-%s.stats.json", phase))
	if err := saveStats(path, stats); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}
