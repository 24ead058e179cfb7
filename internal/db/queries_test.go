package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/stockroom-go/internal/models"
)

func testItem(partNo, name string) models.Item {
	return models.Item{PartNo: partNo, Name: name, Manufacturer: "ACME", Quantity: 1}
}

func TestInsertItems_SkipsDuplicates(t *testing.T) {
	wipe(t)
	ctx := context.Background()

	n, err := testDB.InsertItems(ctx, []models.Item{
		testItem("PUMP-100", "Feed pump"),
		testItem("PUMP-200", "Drain pump"),
	}, "tester")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Overlapping second chunk: the existing record survives untouched
	n, err = testDB.InsertItems(ctx, []models.Item{
		testItem("PUMP-200", "Renamed pump"),
		testItem("PUMP-300", "Spare pump"),
	}, "tester")
	require.NoError(t, err)

	count, err := testDB.CountItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	_ = n // skip policy: the statement reports only what it actually wrote

	got, err := testDB.GetItem(ctx, "PUMP-200")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Drain pump", got.Name)
	assert.Equal(t, "tester", got.CreatedBy)
}

func TestInsertItems_OptionalFields(t *testing.T) {
	wipe(t)
	ctx := context.Background()

	desc := "Stainless impeller"
	loc := "Shelf B-12"
	item := testItem("PUMP-400", "Booster pump")
	item.Description = &desc
	item.Location = &loc

	_, err := testDB.InsertItems(ctx, []models.Item{item}, "tester")
	require.NoError(t, err)

	got, err := testDB.GetItem(ctx, "PUMP-400")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.Description)
	assert.Equal(t, desc, *got.Description)
	require.NotNil(t, got.Location)
	assert.Equal(t, loc, *got.Location)
	assert.False(t, got.Created.IsZero())
}

func TestLookupItemKeys(t *testing.T) {
	wipe(t)
	ctx := context.Background()

	_, err := testDB.InsertItems(ctx, []models.Item{
		testItem("A-1", "One"),
		testItem("A-2", "Two"),
	}, "tester")
	require.NoError(t, err)

	existing, err := testDB.LookupItemKeys(ctx, []string{"A-1", "A-2", "A-3"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A-1", "A-2"}, existing)

	existing, err = testDB.LookupItemKeys(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, existing)
}

func TestIndividuals_ScopedByProject(t *testing.T) {
	wipe(t)
	ctx := context.Background()

	rows := []models.Individual{
		{ProjectCode: "PRJ-1", IndividualNo: "17", FullName: "Unit 17"},
		{ProjectCode: "PRJ-2", IndividualNo: "17", FullName: "Other 17"},
	}
	n, err := testDB.InsertIndividuals(ctx, rows, "tester")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	existing, err := testDB.LookupIndividualKeys(ctx, "PRJ-1", []string{"17", "18"})
	require.NoError(t, err)
	assert.Equal(t, []string{"17"}, existing)

	existing, err = testDB.LookupIndividualKeys(ctx, "PRJ-3", []string{"17"})
	require.NoError(t, err)
	assert.Empty(t, existing)
}

func TestUpsertAttachments_ReplacesByKey(t *testing.T) {
	wipe(t)
	ctx := context.Background()

	first := models.Attachment{
		Entity: "item", Ref: "PUMP-100", Name: "datasheet.pdf",
		ContentType: "application/pdf", Size: 100, Path: "item/PUMP-100/datasheet.pdf",
	}
	n, err := testDB.UpsertAttachments(ctx, []models.Attachment{first}, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Same natural key replaces the record instead of erroring
	second := first
	second.Size = 250
	_, err = testDB.UpsertAttachments(ctx, []models.Attachment{second}, "bob")
	require.NoError(t, err)

	got, err := testDB.GetAttachment(ctx, "item", "PUMP-100", "datasheet.pdf")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(250), got.Size)
	assert.Equal(t, "bob", got.UpdatedBy)
}

func TestUpsertAttachments_ChunkIsTransactional(t *testing.T) {
	wipe(t)
	ctx := context.Background()

	metas := []models.Attachment{
		{Entity: "item", Ref: "PUMP-100", Name: "a.pdf", Size: 1, Path: "item/PUMP-100/a.pdf"},
		{Entity: "item", Ref: "PUMP-100", Name: "b.pdf", Size: 2, Path: "item/PUMP-100/b.pdf"},
		{Entity: "individual", Ref: "PRJ-1/17", Name: "photo.jpg", Size: 3, Path: "individual/PRJ-1/17/photo.jpg"},
	}
	n, err := testDB.UpsertAttachments(ctx, metas, "tester")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, m := range metas {
		got, err := testDB.GetAttachment(ctx, m.Entity, m.Ref, m.Name)
		require.NoError(t, err)
		require.NotNil(t, got, "missing %s/%s/%s", m.Entity, m.Ref, m.Name)
		assert.Equal(t, m.Path, got.Path)
	}
}

func TestGetItem_Missing(t *testing.T) {
	wipe(t)

	got, err := testDB.GetItem(context.Background(), "NOPE-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
