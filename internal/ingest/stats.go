package ingest

import "github.com/raphaelgruber/stockroom-go/internal/models"

// Fold folds one chunk's outcome into the running job stats. Pure: no
// clock, no store, identical inputs give identical output. Earlier error
// entries are never mutated, only appended to.
//
// Status precedence: a fatal chunk failure always wins, then completion
// (progress at 100 or the caller-flagged last chunk), else processing.
func Fold(prev models.Stats, accepted int, chunkErrors []models.UnitError, total int, isLast, fatal bool) models.Stats {
	if total <= 0 {
		total = prev.Total
	}
	completed := prev.Completed + accepted

	progress := 0.0
	if total > 0 {
		progress = float64(completed) / float64(total) * 100
	}

	errs := make([]models.UnitError, 0, len(prev.Errors)+len(chunkErrors))
	errs = append(errs, prev.Errors...)
	errs = append(errs, chunkErrors...)

	status := models.StatusProcessing
	switch {
	case fatal:
		status = models.StatusError
	case progress >= 100 || isLast:
		status = models.StatusCompleted
	}

	return models.Stats{
		Total:        total,
		Completed:    completed,
		Progress:     progress,
		Status:       status,
		Errors:       errs,
		AcceptedKeys: prev.AcceptedKeys,
	}
}

// resume reconciles the client-held stats with the current chunk call.
// The first chunk of a job arrives with zero-valued stats; later chunks
// must carry the previous response back verbatim.
func resume(prev models.Stats, total int) models.Stats {
	if prev.Total == 0 {
		prev.Total = total
	}
	if prev.Status == "" {
		prev.Status = models.StatusProcessing
	}
	if prev.Errors == nil {
		prev.Errors = []models.UnitError{}
	}
	return prev
}
