package manifest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/scangridgo/internal/confmap"
	"github.com/vk/scangridgo/internal/tree"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tree_maker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleJobs() ([]tree.Job, map[string]string) {
	jobs := []tree.Job{
		{ID: "xtrack_0000", Split: 0, Bunch: 100, Config: confmap.Tree{}},
		{ID: "xtrack_0001", Split: 1, Bunch: 100, Config: confmap.Tree{}},
	}
	paths := map[string]string{
		"xtrack_0000": "base_collider/xtrack_0000",
		"xtrack_0001": "base_collider/xtrack_0001",
	}
	return jobs, paths
}

func TestRecordAndQuery(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	jobs, paths := sampleJobs()

	require.NoError(t, s.RecordStudy(ctx, "demo", jobs, paths))

	records, err := s.Jobs(ctx, "demo")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "xtrack_0000", records[0].ID)
	assert.Equal(t, "base_collider/xtrack_0000", records[0].Path)
	assert.Equal(t, 0, records[0].Split)
	assert.Equal(t, 100, records[0].Bunch)
	assert.Equal(t, StateToTrack, records[0].State)
	assert.Equal(t, "demo", records[0].Study)
}

func TestRecordStudyIsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	jobs, paths := sampleJobs()

	require.NoError(t, s.RecordStudy(ctx, "demo", jobs, paths))

	// Regenerating with fewer jobs replaces the old rows.
	require.NoError(t, s.RecordStudy(ctx, "demo", jobs[:1], paths))

	records, err := s.Jobs(ctx, "demo")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestJobsUnknownStudy(t *testing.T) {
	s := testStore(t)
	records, err := s.Jobs(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, records)
}
