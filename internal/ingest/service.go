package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raphaelgruber/stockroom-go/internal/fsstore"
	"github.com/raphaelgruber/stockroom-go/internal/metrics"
	"github.com/raphaelgruber/stockroom-go/internal/models"
)

// ErrCommitFailed marks a fatal chunk failure: the chunk's store commit
// did not go through, every staged unit was converted to a unit error,
// and any filesystem side effects were rolled back.
var ErrCommitFailed = errors.New("chunk commit failed")

// fileWriteConcurrency bounds the fan-out of per-file writes inside one
// chunk. Writes target disjoint paths so they may run concurrently; the
// commit always waits for the join.
const fileWriteConcurrency = 4

// Store is the subset of the database client the pipeline commits
// through. All operations are chunk-atomic: either every record of a
// call is durably visible or none is.
type Store interface {
	LookupItemKeys(ctx context.Context, keys []string) ([]string, error)
	LookupIndividualKeys(ctx context.Context, projectCode string, keys []string) ([]string, error)
	InsertItems(ctx context.Context, items []models.Item, actor string) (int, error)
	InsertIndividuals(ctx context.Context, rows []models.Individual, actor string) (int, error)
	UpsertAttachments(ctx context.Context, metas []models.Attachment, actor string) (int, error)
}

// Storage performs the durable filesystem side effect for upload units.
type Storage interface {
	Write(entity, ref, name string, data []byte) (string, error)
	Rollback(relPaths []string)
}

// Service is the orchestrator: one invocation per chunk, wiring
// validation, duplicate rejection, storage writes, the atomic commit,
// rollback, and the stats fold. The caller serializes chunks of one job;
// nothing here is job-stateful between calls.
type Service struct {
	store          Store
	storage        Storage
	maxUploadBytes int64
	collector      *metrics.Collector
}

// NewService creates the pipeline service. maxUploadBytes <= 0 disables
// the size check; collector may be nil.
func NewService(store Store, storage Storage, maxUploadBytes int64, collector *metrics.Collector) *Service {
	return &Service{
		store:          store,
		storage:        storage,
		maxUploadBytes: maxUploadBytes,
		collector:      collector,
	}
}

// ImportChunk is one orchestrator invocation for row import. Stats must
// be the value returned by the previous call (zero-valued for the first
// chunk); Total is fixed at job start.
type ImportChunk struct {
	Actor       string
	ProjectCode string // individuals only
	Rows        []models.Row
	Total       int
	Stats       models.Stats
	IsLast      bool
}

// UploadChunk is one orchestrator invocation for attachment upload.
type UploadChunk struct {
	Actor  string
	Entity string
	Ref    string
	Files  []models.FileUnit
	Total  int
	Stats  models.Stats
	IsLast bool
}

// ImportItems processes one chunk of inventory rows.
func (s *Service) ImportItems(ctx context.Context, chunk ImportChunk) (models.Stats, error) {
	return s.importRows(ctx, ItemSchema, chunk,
		func(ctx context.Context, keys []string) ([]string, error) {
			return s.store.LookupItemKeys(ctx, keys)
		},
		func(ctx context.Context, rows []models.Row) (int, error) {
			items := make([]models.Item, len(rows))
			for i, r := range rows {
				items[i] = itemFromRow(r)
			}
			return s.store.InsertItems(ctx, items, chunk.Actor)
		})
}

// ImportIndividuals processes one chunk of project-individual rows.
func (s *Service) ImportIndividuals(ctx context.Context, chunk ImportChunk) (models.Stats, error) {
	if chunk.ProjectCode == "" {
		return resume(chunk.Stats, chunk.Total), fmt.Errorf("project code is required")
	}
	return s.importRows(ctx, IndividualSchema, chunk,
		func(ctx context.Context, keys []string) ([]string, error) {
			return s.store.LookupIndividualKeys(ctx, chunk.ProjectCode, keys)
		},
		func(ctx context.Context, rows []models.Row) (int, error) {
			individuals := make([]models.Individual, len(rows))
			for i, r := range rows {
				individuals[i] = individualFromRow(r, chunk.ProjectCode)
			}
			return s.store.InsertIndividuals(ctx, individuals, chunk.Actor)
		})
}

// stagedRow is a row that passed validation, waiting for the chunk
// commit.
type stagedRow struct {
	row        models.Row
	unitNumber int
	identifier string
}

func (s *Service) importRows(
	ctx context.Context,
	schema RowSchema,
	chunk ImportChunk,
	lookup func(context.Context, []string) ([]string, error),
	commit func(context.Context, []models.Row) (int, error),
) (models.Stats, error) {
	begin := time.Now()
	prev := resume(chunk.Stats, chunk.Total)
	offset := prev.Processed()

	keys := make([]string, 0, len(chunk.Rows))
	for _, r := range chunk.Rows {
		if k := r.Field(schema.KeyField); k != "" {
			keys = append(keys, k)
		}
	}

	lookupStart := time.Now()
	existing, err := lookup(ctx, keys)
	s.collector.RecordTiming(metrics.OpKeyLookup, time.Since(lookupStart))
	if err != nil {
		slog.Error("chunk key lookup failed", "entity", schema.Entity, "error", err)
		return Fold(prev, 0, nil, chunk.Total, chunk.IsLast, true),
			fmt.Errorf("lookup existing keys: %w", err)
	}
	dups := NewDupIndex(existing)

	var (
		staged    []stagedRow
		chunkErrs []models.UnitError
	)
	for i, row := range chunk.Rows {
		unitNumber := offset + i + 1
		entries := ValidateRow(row, schema, dups)
		if len(entries) > 0 {
			chunkErrs = append(chunkErrs, models.UnitError{
				UnitNumber: unitNumber,
				Identifier: rowIdentifier(row, schema, unitNumber),
				Entries:    entries,
				Snapshot:   row.Snapshot(),
			})
			continue
		}
		dups.Mark(row.Field(schema.KeyField))
		staged = append(staged, stagedRow{
			row:        row,
			unitNumber: unitNumber,
			identifier: rowIdentifier(row, schema, unitNumber),
		})
	}

	accepted := 0
	if len(staged) > 0 {
		rows := make([]models.Row, len(staged))
		for i, st := range staged {
			rows[i] = st.row
		}
		commitStart := time.Now()
		_, err := commit(ctx, rows)
		s.collector.RecordTiming(metrics.OpCommit, time.Since(commitStart))
		if err != nil {
			slog.Error("chunk commit failed", "entity", schema.Entity, "staged", len(staged), "error", err)
			for _, st := range staged {
				chunkErrs = append(chunkErrs, models.UnitError{
					UnitNumber: st.unitNumber,
					Identifier: st.identifier,
					Entries:    []models.ErrorEntry{{Message: MsgBatchWriteError}},
					Snapshot:   st.row.Snapshot(),
				})
			}
			sortByUnit(chunkErrs)
			return Fold(prev, 0, chunkErrs, chunk.Total, chunk.IsLast, true),
				fmt.Errorf("%w: %v", ErrCommitFailed, err)
		}
		// The skip policy silently ignores keys a racing job inserted
		// first, so the accepted count is the staged count, not the
		// store's insert count.
		accepted = len(staged)
	}

	stats := Fold(prev, accepted, chunkErrs, chunk.Total, chunk.IsLast, false)
	s.collector.RecordChunk(metrics.OpImportChunk, time.Since(begin), len(chunk.Rows), len(chunkErrs))
	slog.Info("import chunk processed",
		"entity", schema.Entity,
		"units", len(chunk.Rows),
		"accepted", accepted,
		"rejected", len(chunkErrs),
		"completed", stats.Completed,
		"status", stats.Status)
	return stats, nil
}

// stagedFile is a file that passed validation; path is set once the
// storage writer succeeds and is the rollback handle.
type stagedFile struct {
	file       models.FileUnit
	unitNumber int
	path       string
	writeErr   error
}

// UploadAttachments processes one chunk of files: validate in input
// order, fan out the filesystem writes, join, then commit all metadata
// rows atomically. A commit failure rolls back every path written for
// this chunk so disk and store never disagree.
func (s *Service) UploadAttachments(ctx context.Context, chunk UploadChunk) (models.Stats, error) {
	if chunk.Entity == "" {
		return resume(chunk.Stats, chunk.Total), fmt.Errorf("entity is required")
	}

	begin := time.Now()
	prev := resume(chunk.Stats, chunk.Total)
	offset := prev.Processed()

	// Upsert policy: a name already in the store is a replace, not a
	// duplicate. The index is seeded from the keys this job has accepted
	// so far, carried in the stats envelope, so a name repeated in a
	// later chunk is rejected like one repeated within the chunk.
	dups := NewDupIndex(prev.AcceptedKeys)

	var (
		staged    []*stagedFile
		chunkErrs []models.UnitError
	)
	for i, file := range chunk.Files {
		unitNumber := offset + i + 1
		entries := ValidateFile(file, s.maxUploadBytes, dups)
		if len(entries) > 0 {
			chunkErrs = append(chunkErrs, models.UnitError{
				UnitNumber: unitNumber,
				Identifier: file.Name,
				Entries:    entries,
				Snapshot:   file.Snapshot(),
			})
			continue
		}
		dups.Mark(safeFileKey(file))
		staged = append(staged, &stagedFile{file: file, unitNumber: unitNumber})
	}

	if len(staged) > 0 {
		writeStart := time.Now()
		var g errgroup.Group
		g.SetLimit(fileWriteConcurrency)
		for _, st := range staged {
			g.Go(func() error {
				st.path, st.writeErr = s.storage.Write(chunk.Entity, chunk.Ref, st.file.Name, st.file.Data)
				return nil
			})
		}
		_ = g.Wait()
		s.collector.RecordTiming(metrics.OpFileWrite, time.Since(writeStart))
	}

	var (
		accepted []*stagedFile
		paths    []string
	)
	for _, st := range staged {
		if st.writeErr != nil {
			slog.Warn("file write failed", "entity", chunk.Entity, "name", st.file.Name, "error", st.writeErr)
			chunkErrs = append(chunkErrs, models.UnitError{
				UnitNumber: st.unitNumber,
				Identifier: st.file.Name,
				Entries:    []models.ErrorEntry{{Message: MsgWriteFailed}},
				Snapshot:   st.file.Snapshot(),
			})
			continue
		}
		accepted = append(accepted, st)
		paths = append(paths, st.path)
	}

	committed := 0
	if len(accepted) > 0 {
		metas := make([]models.Attachment, len(accepted))
		for i, st := range accepted {
			metas[i] = models.Attachment{
				Entity:      chunk.Entity,
				Ref:         chunk.Ref,
				Name:        safeFileKey(st.file),
				ContentType: st.file.ContentType,
				Size:        st.file.Size,
				Path:        st.path,
			}
		}
		commitStart := time.Now()
		_, err := s.store.UpsertAttachments(ctx, metas, chunk.Actor)
		s.collector.RecordTiming(metrics.OpCommit, time.Since(commitStart))
		if err != nil {
			slog.Error("chunk commit failed, rolling back files",
				"entity", chunk.Entity, "files", len(paths), "error", err)
			rollbackStart := time.Now()
			s.storage.Rollback(paths)
			s.collector.RecordTiming(metrics.OpRollback, time.Since(rollbackStart))
			for _, st := range accepted {
				chunkErrs = append(chunkErrs, models.UnitError{
					UnitNumber: st.unitNumber,
					Identifier: st.file.Name,
					Entries:    []models.ErrorEntry{{Message: MsgBatchWriteError}},
					Snapshot:   st.file.Snapshot(),
				})
			}
			sortByUnit(chunkErrs)
			return Fold(prev, 0, chunkErrs, chunk.Total, chunk.IsLast, true),
				fmt.Errorf("%w: %v", ErrCommitFailed, err)
		}
		committed = len(accepted)
	}

	sortByUnit(chunkErrs)
	stats := Fold(prev, committed, chunkErrs, chunk.Total, chunk.IsLast, false)
	if committed > 0 {
		keys := slices.Clone(prev.AcceptedKeys)
		for _, st := range accepted {
			keys = append(keys, safeFileKey(st.file))
		}
		stats.AcceptedKeys = keys
	}
	s.collector.RecordChunk(metrics.OpUploadChunk, time.Since(begin), len(chunk.Files), len(chunkErrs))
	slog.Info("upload chunk processed",
		"entity", chunk.Entity,
		"ref", chunk.Ref,
		"units", len(chunk.Files),
		"accepted", committed,
		"rejected", len(chunkErrs),
		"completed", stats.Completed,
		"status", stats.Status)
	return stats, nil
}

func rowIdentifier(row models.Row, schema RowSchema, unitNumber int) string {
	if key := row.Field(schema.KeyField); key != "" {
		return key
	}
	return fmt.Sprintf("row %d", unitNumber)
}

func safeFileKey(file models.FileUnit) string {
	// Duplicate detection and the metadata key both use the normalized
	// name: two inputs mapping to the same path are the same attachment.
	return fsstore.SafeName(file.Name)
}

// sortByUnit restores input order after commit-failure errors are
// appended behind the validation errors.
func sortByUnit(errs []models.UnitError) {
	slices.SortFunc(errs, func(a, b models.UnitError) int {
		return a.UnitNumber - b.UnitNumber
	})
}

func itemFromRow(row models.Row) models.Item {
	item := models.Item{
		PartNo:       row.Field("part_no"),
		Name:         row.Field("name"),
		Manufacturer: row.Field("manufacturer"),
	}
	if v := row.Field("quantity"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			item.Quantity = n
		}
	}
	if v := row.Field("description"); v != "" {
		item.Description = &v
	}
	if v := row.Field("location"); v != "" {
		item.Location = &v
	}
	return item
}

func individualFromRow(row models.Row, projectCode string) models.Individual {
	individual := models.Individual{
		ProjectCode:  projectCode,
		IndividualNo: row.Field("individual_no"),
		FullName:     row.Field("full_name"),
	}
	if v := row.Field("role"); v != "" {
		individual.Role = &v
	}
	return individual
}
