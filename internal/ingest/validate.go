package ingest

import (
	"github.com/raphaelgruber/stockroom-go/internal/fsstore"
	"github.com/raphaelgruber/stockroom-go/internal/models"
)

// User-visible error messages. The batch write message is deliberately
// distinct from validation rejections so a fatal chunk failure is
// recognizable in the exported report.
const (
	MsgMissingField    = "Missing required field"
	MsgFileTooLarge    = "File size too large!"
	MsgWriteFailed     = "File write failed"
	MsgBatchWriteError = "Unexpected batch write error"
)

// RowSchema describes the recognized shape of one import entity: which
// fields must be present and which one carries the natural key.
type RowSchema struct {
	Entity   string // display label, e.g. "Item"
	KeyField string
	Required []string
}

// ItemSchema covers bulk inventory import.
var ItemSchema = RowSchema{
	Entity:   "Item",
	KeyField: "part_no",
	Required: []string{"part_no", "name", "manufacturer"},
}

// IndividualSchema covers project-individual import.
var IndividualSchema = RowSchema{
	Entity:   "Individual",
	KeyField: "individual_no",
	Required: []string{"individual_no", "full_name"},
}

// ValidateRow checks one row against the schema's required fields and
// the duplicate index. It never fails; a unit with one or more returned
// entries is rejected outright, the rest of the chunk proceeds.
func ValidateRow(row models.Row, schema RowSchema, dups *DupIndex) []models.ErrorEntry {
	var entries []models.ErrorEntry
	for _, name := range schema.Required {
		if row.Field(name) == "" {
			entries = append(entries, fieldEntry(name, MsgMissingField))
		}
	}
	if key := row.Field(schema.KeyField); key != "" && dups.Seen(key) {
		entries = append(entries, fieldEntry(schema.KeyField, schema.Entity+" already exists"))
	}
	return entries
}

// ValidateFile checks one upload unit: a usable name, the configured
// size ceiling, and the duplicate index (which for uploads only holds
// names accepted earlier in this job, since a pre-existing name is a
// replace rather than an error).
func ValidateFile(file models.FileUnit, maxBytes int64, dups *DupIndex) []models.ErrorEntry {
	var entries []models.ErrorEntry
	safe := fsstore.SafeName(file.Name)
	if safe == "" {
		entries = append(entries, fieldEntry("name", MsgMissingField))
	}
	if maxBytes > 0 && file.Size > maxBytes {
		entries = append(entries, models.ErrorEntry{Message: MsgFileTooLarge})
	}
	if safe != "" && dups.Seen(safe) {
		entries = append(entries, fieldEntry("name", "Attachment already exists"))
	}
	return entries
}

func fieldEntry(field, message string) models.ErrorEntry {
	return models.ErrorEntry{Field: &field, Message: message}
}
