package ingest

import (
	"testing"

	"github.com/raphaelgruber/stockroom-go/internal/models"
)

func TestValidateRow(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		existing []string
		want     []string // expected messages in order
	}{
		{
			name:   "valid row",
			fields: map[string]string{"part_no": "A-1", "name": "One", "manufacturer": "ACME"},
		},
		{
			name:   "missing one field",
			fields: map[string]string{"part_no": "A-1", "name": "One"},
			want:   []string{MsgMissingField},
		},
		{
			name:   "whitespace counts as missing",
			fields: map[string]string{"part_no": "A-1", "name": "  ", "manufacturer": "ACME"},
			want:   []string{MsgMissingField},
		},
		{
			name:   "all fields missing",
			fields: map[string]string{},
			want:   []string{MsgMissingField, MsgMissingField, MsgMissingField},
		},
		{
			name:     "duplicate key",
			fields:   map[string]string{"part_no": "A-1", "name": "One", "manufacturer": "ACME"},
			existing: []string{"A-1"},
			want:     []string{"Item already exists"},
		},
		{
			name:     "key trimmed before duplicate check",
			fields:   map[string]string{"part_no": "  A-1  ", "name": "One", "manufacturer": "ACME"},
			existing: []string{"A-1"},
			want:     []string{"Item already exists"},
		},
		{
			// A row with no key cannot collide, it only misses the field
			name:     "missing key never collides",
			fields:   map[string]string{"name": "One", "manufacturer": "ACME"},
			existing: []string{""},
			want:     []string{MsgMissingField},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dups := NewDupIndex(tt.existing)
			entries := ValidateRow(models.Row{Fields: tt.fields}, ItemSchema, dups)

			if len(entries) != len(tt.want) {
				t.Fatalf("got %d entries, want %d: %+v", len(entries), len(tt.want), entries)
			}
			for i, want := range tt.want {
				if entries[i].Message != want {
					t.Errorf("entry %d = %q, want %q", i, entries[i].Message, want)
				}
			}
		})
	}
}

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name      string
		file      models.FileUnit
		maxBytes  int64
		seen      []string
		want      []string
		wantField []string // "" means nil field
	}{
		{
			name:     "valid file",
			file:     models.FileUnit{Name: "doc.pdf", Size: 100},
			maxBytes: 1024,
		},
		{
			name:      "empty name",
			file:      models.FileUnit{Name: "", Size: 100},
			want:      []string{MsgMissingField},
			wantField: []string{"name"},
		},
		{
			name:      "name normalizes to nothing",
			file:      models.FileUnit{Name: "???", Size: 100},
			want:      []string{MsgMissingField},
			wantField: []string{"name"},
		},
		{
			name:      "too large",
			file:      models.FileUnit{Name: "big.bin", Size: 2048},
			maxBytes:  1024,
			want:      []string{MsgFileTooLarge},
			wantField: []string{""},
		},
		{
			name:     "no limit when zero",
			file:     models.FileUnit{Name: "big.bin", Size: 1 << 40},
			maxBytes: 0,
		},
		{
			name:      "duplicate by normalized name",
			file:      models.FileUnit{Name: "my doc.pdf", Size: 10},
			seen:      []string{"my_doc.pdf"},
			want:      []string{"Attachment already exists"},
			wantField: []string{"name"},
		},
		{
			name:      "oversized duplicate reports both",
			file:      models.FileUnit{Name: "big.bin", Size: 2048},
			maxBytes:  1024,
			seen:      []string{"big.bin"},
			want:      []string{MsgFileTooLarge, "Attachment already exists"},
			wantField: []string{"", "name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dups := NewDupIndex(tt.seen)
			entries := ValidateFile(tt.file, tt.maxBytes, dups)

			if len(entries) != len(tt.want) {
				t.Fatalf("got %d entries, want %d: %+v", len(entries), len(tt.want), entries)
			}
			for i, want := range tt.want {
				if entries[i].Message != want {
					t.Errorf("entry %d = %q, want %q", i, entries[i].Message, want)
				}
				if tt.wantField[i] == "" {
					if entries[i].Field != nil {
						t.Errorf("entry %d field = %q, want nil", i, *entries[i].Field)
					}
				} else if entries[i].Field == nil || *entries[i].Field != tt.wantField[i] {
					t.Errorf("entry %d field = %v, want %q", i, entries[i].Field, tt.wantField[i])
				}
			}
		})
	}
}

func TestDupIndex(t *testing.T) {
	d := NewDupIndex([]string{"A-1", " B-2 "})

	if !d.Seen("A-1") {
		t.Error("seeded key not found")
	}
	if !d.Seen("B-2") {
		t.Error("seeded key should be trimmed")
	}
	if d.Seen("C-3") {
		t.Error("unknown key reported as seen")
	}

	d.Mark("C-3")
	if !d.Seen(" C-3 ") {
		t.Error("marked key not found via trimmed lookup")
	}
}
