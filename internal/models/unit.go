package models

import "strings"

// Row is one already-parsed tabular unit of an import job. Fields holds
// the recognized columns keyed by canonical field name; Raw carries the
// untouched input for diagnostics and error export.
type Row struct {
	Fields map[string]string `json:"fields"`
	Raw    map[string]any    `json:"raw,omitempty"`
}

// Field returns the trimmed value of a recognized field, or "" when the
// field is absent.
func (r Row) Field(name string) string {
	return strings.TrimSpace(r.Fields[name])
}

// Snapshot returns the diagnostic view of the row: the raw input when
// present, otherwise the recognized fields.
func (r Row) Snapshot() map[string]any {
	if len(r.Raw) > 0 {
		return r.Raw
	}
	snap := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		snap[k] = v
	}
	return snap
}

// FileUnit is one upload unit: the received bytes plus the metadata the
// transport layer extracted from the multipart request.
type FileUnit struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

// Snapshot returns the diagnostic view of the file (metadata only, never
// the content bytes).
func (f FileUnit) Snapshot() map[string]any {
	return map[string]any{
		"name":        f.Name,
		"size":        f.Size,
		"contentType": f.ContentType,
	}
}
