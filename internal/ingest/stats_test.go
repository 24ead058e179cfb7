package ingest

import (
	"testing"

	"github.com/raphaelgruber/stockroom-go/internal/models"
)

func TestFold_Progress(t *testing.T) {
	tests := []struct {
		name         string
		prev         models.Stats
		accepted     int
		errs         int
		total        int
		isLast       bool
		fatal        bool
		wantDone     int
		wantProgress float64
		wantStatus   models.JobStatus
	}{
		{
			name:         "first chunk partial",
			accepted:     5,
			total:        20,
			wantDone:     5,
			wantProgress: 25,
			wantStatus:   models.StatusProcessing,
		},
		{
			name:         "progress reaches 100",
			prev:         models.Stats{Total: 10, Completed: 8},
			accepted:     2,
			total:        10,
			wantDone:     10,
			wantProgress: 100,
			wantStatus:   models.StatusCompleted,
		},
		{
			// Rejected units never reach 100 percent; the last-chunk
			// flag closes the job instead
			name:       "last chunk with rejects completes",
			prev:       models.Stats{Total: 10, Completed: 6},
			accepted:   2,
			errs:       2,
			total:      10,
			isLast:     true,
			wantDone:   8,
			wantStatus: models.StatusCompleted,
		},
		{
			name:       "fatal wins over last chunk",
			prev:       models.Stats{Total: 10, Completed: 9},
			accepted:   0,
			errs:       1,
			total:      10,
			isLast:     true,
			fatal:      true,
			wantDone:   9,
			wantStatus: models.StatusError,
		},
		{
			name:       "zero total inherits previous",
			prev:       models.Stats{Total: 10, Completed: 5},
			accepted:   1,
			total:      0,
			wantDone:   6,
			wantStatus: models.StatusProcessing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := make([]models.UnitError, tt.errs)
			got := Fold(tt.prev, tt.accepted, errs, tt.total, tt.isLast, tt.fatal)

			if got.Completed != tt.wantDone {
				t.Errorf("Completed = %d, want %d", got.Completed, tt.wantDone)
			}
			if tt.wantProgress != 0 && got.Progress != tt.wantProgress {
				t.Errorf("Progress = %v, want %v", got.Progress, tt.wantProgress)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", got.Status, tt.wantStatus)
			}
			if got.Completed < tt.prev.Completed {
				t.Errorf("Completed went backwards: %d < %d", got.Completed, tt.prev.Completed)
			}
			if len(got.Errors) != len(tt.prev.Errors)+tt.errs {
				t.Errorf("Errors = %d, want %d", len(got.Errors), len(tt.prev.Errors)+tt.errs)
			}
		})
	}
}

func TestFold_KeepsEarlierErrors(t *testing.T) {
	field := "part_no"
	prev := models.Stats{
		Total:     4,
		Completed: 1,
		Errors: []models.UnitError{
			{UnitNumber: 2, Identifier: "A-2", Entries: []models.ErrorEntry{{Field: &field, Message: MsgMissingField}}},
		},
	}

	got := Fold(prev, 1, []models.UnitError{{UnitNumber: 4, Identifier: "A-4"}}, 4, true, false)

	if len(got.Errors) != 2 {
		t.Fatalf("Errors = %d, want 2", len(got.Errors))
	}
	if got.Errors[0].UnitNumber != 2 || got.Errors[1].UnitNumber != 4 {
		t.Errorf("error order changed: %v", got.Errors)
	}
	if got.Errors[0].Entries[0].Message != MsgMissingField {
		t.Errorf("earlier entry mutated: %+v", got.Errors[0].Entries[0])
	}
}

func TestFold_CarriesAcceptedKeys(t *testing.T) {
	prev := models.Stats{Total: 3, Completed: 1, AcceptedKeys: []string{"photo.jpg"}}

	got := Fold(prev, 1, nil, 3, false, false)

	if len(got.AcceptedKeys) != 1 || got.AcceptedKeys[0] != "photo.jpg" {
		t.Errorf("AcceptedKeys = %v, want [photo.jpg]", got.AcceptedKeys)
	}
}

func TestResume_FirstChunkDefaults(t *testing.T) {
	got := resume(models.Stats{}, 12)

	if got.Total != 12 {
		t.Errorf("Total = %d, want 12", got.Total)
	}
	if got.Status != models.StatusProcessing {
		t.Errorf("Status = %q, want processing", got.Status)
	}
	if got.Errors == nil {
		t.Error("Errors should be non-nil after resume")
	}
}

func TestResume_KeepsCarriedStats(t *testing.T) {
	prev := models.Stats{Total: 8, Completed: 3, Status: models.StatusProcessing}
	got := resume(prev, 8)

	if got.Completed != 3 || got.Total != 8 {
		t.Errorf("carried stats changed: %+v", got)
	}
}
