package catalog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	asilib "github.com/mshumko/aurora-asi-lib"
)

func setupTestCatalog(t *testing.T) *Catalog {
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, c.Close()) })
	return c
}

func TestUpsertAndRange(t *testing.T) {
	c := setupTestCatalog(t)

	base := time.Date(2019, 1, 1, 6, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := c.Upsert(Entry{
			Network:   asilib.REGO,
			Location:  "GILL",
			StartTime: base.Add(time.Duration(i) * time.Minute),
			Path:      "/data/rego/gill_" + base.Add(time.Duration(i)*time.Minute).Format("20060102_1504") + ".pgm.gz",
			Frames:    20,
		})
		require.NoError(t, err)
	}

	entries, err := c.Range(asilib.REGO, "GILL", asilib.TimeRange{
		Start: base.Add(1 * time.Minute),
		End:   base.Add(4 * time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, base.Add(1*time.Minute), entries[0].StartTime)
	assert.Equal(t, base.Add(3*time.Minute), entries[2].StartTime)
	assert.Equal(t, asilib.REGO, entries[0].Network)
	assert.Equal(t, 20, entries[0].Frames)
}

func TestUpsertReplacesByPath(t *testing.T) {
	c := setupTestCatalog(t)

	e := Entry{
		Network:   asilib.THEMIS,
		Location:  "FSMI",
		StartTime: time.Date(2019, 1, 1, 6, 0, 0, 0, time.UTC),
		Path:      "/data/themis/fsmi_20190101_0600.pgm.gz",
		Frames:    0,
	}
	require.NoError(t, c.Upsert(e))

	e.Frames = 20
	require.NoError(t, c.Upsert(e))

	entries, err := c.Range(asilib.THEMIS, "FSMI", asilib.TimeRange{
		Start: e.StartTime.Add(-time.Minute),
		End:   e.StartTime.Add(time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 20, entries[0].Frames)
}

func TestSetFrames(t *testing.T) {
	c := setupTestCatalog(t)

	e := Entry{
		Network:   asilib.REGO,
		Location:  "GILL",
		StartTime: time.Date(2019, 1, 1, 6, 0, 0, 0, time.UTC),
		Path:      "/data/rego/gill_20190101_0600.pgm.gz",
	}
	require.NoError(t, c.Upsert(e))
	require.NoError(t, c.SetFrames(e.Path, 20))

	entries, err := c.Range(asilib.REGO, "GILL", asilib.TimeRange{
		Start: e.StartTime.Add(-time.Minute),
		End:   e.StartTime.Add(time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 20, entries[0].Frames)
}

func TestRangeFiltersBySite(t *testing.T) {
	c := setupTestCatalog(t)

	at := time.Date(2019, 1, 1, 6, 0, 0, 0, time.UTC)
	require.NoError(t, c.Upsert(Entry{Network: asilib.REGO, Location: "GILL", StartTime: at, Path: "/a"}))
	require.NoError(t, c.Upsert(Entry{Network: asilib.REGO, Location: "FSMI", StartTime: at, Path: "/b"}))
	require.NoError(t, c.Upsert(Entry{Network: asilib.THEMIS, Location: "GILL", StartTime: at, Path: "/c"}))

	tr := asilib.TimeRange{Start: at.Add(-time.Hour), End: at.Add(time.Hour)}
	entries, err := c.Range(asilib.REGO, "GILL", tr)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "/a", entries[0].Path)
}

func TestRemove(t *testing.T) {
	c := setupTestCatalog(t)

	at := time.Date(2019, 1, 1, 6, 0, 0, 0, time.UTC)
	require.NoError(t, c.Upsert(Entry{Network: asilib.REGO, Location: "GILL", StartTime: at, Path: "/a"}))
	require.NoError(t, c.Remove("/a"))

	tr := asilib.TimeRange{Start: at.Add(-time.Hour), End: at.Add(time.Hour)}
	entries, err := c.Range(asilib.REGO, "GILL", tr)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
