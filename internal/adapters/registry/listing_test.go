package registry

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/graphrag-web/internal/domain/entities"
)

func writeListing(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ListingFile), []byte(content), 0644))
}

func TestListingRegistry_LoadsArray(t *testing.T) {
	dir := t.TempDir()
	writeListing(t, dir, `[
		{"key": "alpha", "path": "alpha_data"},
		{"key": "beta", "path": "nested/beta", "title": "ignored"}
	]`)

	reg := NewListingRegistry(dir, nil)
	datasets := reg.LoadDatasets(context.Background())

	assert.Equal(t, []entities.Dataset{
		{Key: "alpha", Path: "alpha_data"},
		{Key: "beta", Path: "nested/beta"},
	}, datasets)
}

func TestListingRegistry_KeepsDuplicatesVerbatim(t *testing.T) {
	dir := t.TempDir()
	writeListing(t, dir, `[{"key":"a","path":"1"},{"key":"a","path":"2"}]`)

	datasets := NewListingRegistry(dir, nil).LoadDatasets(context.Background())

	assert.Len(t, datasets, 2)
}

func TestListingRegistry_MissingFile(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	datasets := NewListingRegistry(t.TempDir(), logger).LoadDatasets(context.Background())

	assert.NotNil(t, datasets)
	assert.Empty(t, datasets)
	assert.Contains(t, buf.String(), "listing.json not found")
}

func TestListingRegistry_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	writeListing(t, dir, `[{"key": "alpha",`)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	datasets := NewListingRegistry(dir, logger).LoadDatasets(context.Background())

	assert.Empty(t, datasets)
	assert.Contains(t, buf.String(), "invalid listing JSON")
	assert.Contains(t, buf.String(), "unexpected end of JSON input")
}

func TestListingRegistry_WrongShape(t *testing.T) {
	dir := t.TempDir()
	writeListing(t, dir, `{"key": "alpha", "path": "a"}`)

	datasets := NewListingRegistry(dir, nil).LoadDatasets(context.Background())

	assert.Empty(t, datasets)
}

func TestListingRegistry_NullListing(t *testing.T) {
	dir := t.TempDir()
	writeListing(t, dir, `null`)

	datasets := NewListingRegistry(dir, nil).LoadDatasets(context.Background())

	assert.NotNil(t, datasets)
	assert.Empty(t, datasets)
}

func TestListingRegistry_UnreadableListing(t *testing.T) {
	dir := t.TempDir()
	// A directory in place of the file fails the read, not the existence check.
	require.NoError(t, os.Mkdir(filepath.Join(dir, ListingFile), 0755))

	datasets := NewListingRegistry(dir, nil).LoadDatasets(context.Background())

	assert.Empty(t, datasets)
}

func TestListingRegistry_Path(t *testing.T) {
	reg := NewListingRegistry("/srv/graphrag", nil)
	assert.Equal(t, "/srv/graphrag/listing.json", reg.Path())
}

func TestListingRegistryAt_ReadsGivenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datasets.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"key": "alpha", "path": "alpha_data"}]`), 0644))

	reg := NewListingRegistryAt(path, nil)

	assert.Equal(t, path, reg.Path())
	assert.Equal(t, []entities.Dataset{{Key: "alpha", Path: "alpha_data"}}, reg.LoadDatasets(context.Background()))
}
