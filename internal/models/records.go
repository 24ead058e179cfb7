package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Item is an inventory record. The natural key is the manufacturer part
// number; the record id is derived from it so the store's own uniqueness
// constraint stays the final arbiter across concurrent jobs.
type Item struct {
	ID           surrealmodels.RecordID `json:"id"`
	PartNo       string                 `json:"part_no"`
	Name         string                 `json:"name"`
	Manufacturer string                 `json:"manufacturer"`
	Description  *string                `json:"description,omitempty"`
	Quantity     int                    `json:"quantity,omitempty"`
	Location     *string                `json:"location,omitempty"`
	CreatedBy    string                 `json:"created_by,omitempty"`
	UpdatedBy    string                 `json:"updated_by,omitempty"`
	Created      time.Time              `json:"created,omitempty"`
	Updated      time.Time              `json:"updated,omitempty"`
}

// Individual is a project-individual record, naturally keyed by the
// individual number within a project.
type Individual struct {
	ID           surrealmodels.RecordID `json:"id"`
	ProjectCode  string                 `json:"project_code"`
	IndividualNo string                 `json:"individual_no"`
	FullName     string                 `json:"full_name"`
	Role         *string                `json:"role,omitempty"`
	CreatedBy    string                 `json:"created_by,omitempty"`
	UpdatedBy    string                 `json:"updated_by,omitempty"`
	Created      time.Time              `json:"created,omitempty"`
	Updated      time.Time              `json:"updated,omitempty"`
}

// Attachment is the metadata row paired with a file on disk. It must
// always agree with what is physically stored under Path; the rollback
// step exists to preserve that agreement. Natural key: (entity, ref,
// name after safe-name normalization).
type Attachment struct {
	ID          surrealmodels.RecordID `json:"id"`
	Entity      string                 `json:"entity"`
	Ref         string                 `json:"ref,omitempty"`
	Name        string                 `json:"name"`
	ContentType string                 `json:"content_type,omitempty"`
	Size        int64                  `json:"size"`
	Path        string                 `json:"path"`
	CreatedBy   string                 `json:"created_by,omitempty"`
	UpdatedBy   string                 `json:"updated_by,omitempty"`
	Created     time.Time              `json:"created,omitempty"`
	Updated     time.Time              `json:"updated,omitempty"`
}
