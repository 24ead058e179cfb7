package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/raphaelgruber/stockroom-go/internal/models"
)

// Default chunk sizes: imports go in larger slices, uploads in small
// fixed batches since each file can be large.
const (
	DefaultImportChunkSize = 50
	DefaultUploadChunkSize = 3
)

// ImportKind selects which import operation a job drives.
type ImportKind string

const (
	KindItems       ImportKind = "items"
	KindIndividuals ImportKind = "individuals"
)

// RunImport drives a whole import job chunk by chunk. The returned stats
// is the final job state; onProgress (optional) fires after every chunk
// with the running stats. The server holds no job state: each call
// carries the stats from the previous response.
func (c *Client) RunImport(ctx context.Context, kind ImportKind, projectCode string, rows []models.Row, chunkSize int, onProgress func(models.Stats)) (models.Stats, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultImportChunkSize
	}
	total := len(rows)
	stats := models.NewStats(total)

	for offset := 0; offset < total; offset += chunkSize {
		end := min(offset+chunkSize, total)
		isLast := end == total

		var (
			result *ChunkResult
			err    error
		)
		switch kind {
		case KindIndividuals:
			result, err = c.ImportIndividualsChunk(ctx, projectCode, rows[offset:end], total, stats, isLast)
		default:
			result, err = c.ImportItemsChunk(ctx, rows[offset:end], total, stats, isLast)
		}
		if err != nil {
			return stats, fmt.Errorf("chunk at row %d: %w", offset+1, err)
		}

		stats = result.Stats
		if onProgress != nil {
			onProgress(stats)
		}
		if !result.OK {
			return stats, fmt.Errorf("%s", result.Message)
		}
	}

	return stats, nil
}

// RunUpload drives a whole upload job chunk by chunk, loading each
// chunk's files from disk just before sending so at most one chunk of
// content is held in memory.
func (c *Client) RunUpload(ctx context.Context, entity, ref string, paths []string, chunkSize int, onProgress func(models.Stats)) (models.Stats, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultUploadChunkSize
	}
	total := len(paths)
	stats := models.NewStats(total)

	for offset := 0; offset < total; offset += chunkSize {
		end := min(offset+chunkSize, total)
		isLast := end == total

		files, err := loadFiles(paths[offset:end])
		if err != nil {
			return stats, err
		}

		result, err := c.UploadAttachmentsChunk(ctx, entity, ref, files, total, stats, isLast)
		if err != nil {
			return stats, fmt.Errorf("chunk at file %d: %w", offset+1, err)
		}

		stats = result.Stats
		if onProgress != nil {
			onProgress(stats)
		}
		if !result.OK {
			return stats, fmt.Errorf("%s", result.Message)
		}
	}

	return stats, nil
}

func loadFiles(paths []string) ([]models.FileUnit, error) {
	files := make([]models.FileUnit, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, models.FileUnit{
			Name: filepath.Base(p),
			Size: int64(len(data)),
			Data: data,
		})
	}
	return files, nil
}
