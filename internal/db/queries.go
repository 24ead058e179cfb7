// Package db provides SurrealDB query functions for the ingestion pipeline.
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/raphaelgruber/stockroom-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// ItemRecordID derives the record id for an item from its natural key.
func ItemRecordID(partNo string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID("item", partNo)
}

// IndividualRecordID derives the record id for a project individual.
func IndividualRecordID(projectCode, individualNo string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID("individual", projectCode+"/"+individualNo)
}

// AttachmentRecordID derives the record id for an attachment from its
// (entity, ref, safe name) natural key.
func AttachmentRecordID(entity, ref, name string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID("attachment", entity+"/"+ref+"/"+name)
}

// LookupItemKeys returns which of the given part numbers already exist,
// as a single batched query.
func (c *Client) LookupItemKeys(ctx context.Context, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return []string{}, nil
	}
	results, err := surrealdb.Query[[]string](ctx, c.db, `
		SELECT VALUE part_no FROM item WHERE part_no IN $keys
	`, map[string]any{"keys": keys})
	if err != nil {
		return nil, fmt.Errorf("lookup item keys: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return []string{}, nil
	}
	return (*results)[0].Result, nil
}

// LookupIndividualKeys returns which of the given individual numbers
// already exist within a project, as a single batched query.
func (c *Client) LookupIndividualKeys(ctx context.Context, projectCode string, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return []string{}, nil
	}
	results, err := surrealdb.Query[[]string](ctx, c.db, `
		SELECT VALUE individual_no FROM individual
		WHERE project_code = $project AND individual_no IN $keys
	`, map[string]any{"project": projectCode, "keys": keys})
	if err != nil {
		return nil, fmt.Errorf("lookup individual keys: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return []string{}, nil
	}
	return (*results)[0].Result, nil
}

// InsertItems commits a chunk of items in one atomic statement.
// Duplicates by natural key are silently skipped (insert-skip-duplicates
// policy). Returns the number of records the store actually inserted.
func (c *Client) InsertItems(ctx context.Context, items []models.Item, actor string) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	docs := make([]map[string]any, len(items))
	for i, it := range items {
		doc := map[string]any{
			"id":           ItemRecordID(it.PartNo),
			"part_no":      it.PartNo,
			"name":         it.Name,
			"manufacturer": it.Manufacturer,
			"quantity":     it.Quantity,
			"created_by":   actor,
			"updated_by":   actor,
		}
		if it.Description != nil {
			doc["description"] = *it.Description
		}
		if it.Location != nil {
			doc["location"] = *it.Location
		}
		docs[i] = doc
	}

	results, err := surrealdb.Query[[]models.Item](ctx, c.db, `
		INSERT IGNORE INTO item $rows
	`, map[string]any{"rows": docs})
	if err != nil {
		return 0, fmt.Errorf("insert items: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return 0, nil
	}
	return len((*results)[0].Result), nil
}

// InsertIndividuals commits a chunk of project individuals in one atomic
// statement, skipping duplicates by natural key.
func (c *Client) InsertIndividuals(ctx context.Context, rows []models.Individual, actor string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	docs := make([]map[string]any, len(rows))
	for i, in := range rows {
		doc := map[string]any{
			"id":            IndividualRecordID(in.ProjectCode, in.IndividualNo),
			"project_code":  in.ProjectCode,
			"individual_no": in.IndividualNo,
			"full_name":     in.FullName,
			"created_by":    actor,
			"updated_by":    actor,
		}
		if in.Role != nil {
			doc["role"] = *in.Role
		}
		docs[i] = doc
	}

	results, err := surrealdb.Query[[]models.Individual](ctx, c.db, `
		INSERT IGNORE INTO individual $rows
	`, map[string]any{"rows": docs})
	if err != nil {
		return 0, fmt.Errorf("insert individuals: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return 0, nil
	}
	return len((*results)[0].Result), nil
}

// UpsertAttachments commits a chunk of attachment metadata rows in one
// transaction. Resubmitting an existing (entity, ref, name) key replaces
// the record (upsert-by-natural-key policy), mirroring the overwrite the
// storage writer already performed on disk.
func (c *Client) UpsertAttachments(ctx context.Context, metas []models.Attachment, actor string) (int, error) {
	if len(metas) == 0 {
		return 0, nil
	}

	var sb strings.Builder
	sb.WriteString("BEGIN TRANSACTION;\n")
	vars := make(map[string]any, len(metas)*2)
	for i, m := range metas {
		idVar := fmt.Sprintf("id%d", i)
		docVar := fmt.Sprintf("doc%d", i)
		sb.WriteString(fmt.Sprintf("UPSERT $%s CONTENT $%s;\n", idVar, docVar))
		vars[idVar] = AttachmentRecordID(m.Entity, m.Ref, m.Name)
		doc := map[string]any{
			"entity":     m.Entity,
			"name":       m.Name,
			"size":       m.Size,
			"path":       m.Path,
			"created_by": actor,
			"updated_by": actor,
		}
		if m.Ref != "" {
			doc["ref"] = m.Ref
		}
		if m.ContentType != "" {
			doc["content_type"] = m.ContentType
		}
		vars[docVar] = doc
	}
	sb.WriteString("COMMIT TRANSACTION;\n")

	_, err := surrealdb.Query[any](ctx, c.db, sb.String(), vars)
	if err != nil {
		return 0, fmt.Errorf("upsert attachments: %w", wrapQueryError(err))
	}
	return len(metas), nil
}

// GetItem retrieves an item by part number. Returns nil if not found.
func (c *Client) GetItem(ctx context.Context, partNo string) (*models.Item, error) {
	results, err := surrealdb.Query[[]models.Item](ctx, c.db, `
		SELECT * FROM item WHERE part_no = $key
	`, map[string]any{"key": partNo})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// GetAttachment retrieves an attachment by natural key. Returns nil if
// not found.
func (c *Client) GetAttachment(ctx context.Context, entity, ref, name string) (*models.Attachment, error) {
	results, err := surrealdb.Query[[]models.Attachment](ctx, c.db, `
		SELECT * FROM attachment WHERE entity = $entity AND ref = $ref AND name = $name
	`, map[string]any{"entity": entity, "ref": ref, "name": name})
	if err != nil {
		return nil, fmt.Errorf("get attachment: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// CountItems returns the number of item records. Used by tests.
func (c *Client) CountItems(ctx context.Context) (int, error) {
	results, err := surrealdb.Query[[]struct {
		C int `json:"c"`
	}](ctx, c.db, `SELECT count() AS c FROM item GROUP ALL`, nil)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].C, nil
}
