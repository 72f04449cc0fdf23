package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1F47E/mappins/pkg/catalog"
	"github.com/1F47E/mappins/pkg/models"
	"github.com/1F47E/mappins/pkg/projection"
)

func resetFlags(t *testing.T) {
	t.Helper()
	catalogFile = ""
	strict = false
	verbose = false
	outputJSON = false
	nearFlag = ""
	nearCount = 3
	boxFlag = ""
	t.Cleanup(func() {
		catalogFile = ""
		strict = false
		verbose = false
		outputJSON = false
		nearFlag = ""
		nearCount = 3
		boxFlag = ""
	})
}

func writeCatalog(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestGenerate(t *testing.T) {
	resetFlags(t)
	path := filepath.Join(t.TempDir(), "locations.json")

	var stdout bytes.Buffer
	require.NoError(t, generate(&stdout, path))
	assert.Equal(t, "Wrote 5 locations to "+path+"\n", stdout.String())

	payload, err := os.ReadFile(path)
	require.NoError(t, err)

	var pins []models.Pin
	require.NoError(t, json.Unmarshal(payload, &pins))

	locations, err := catalog.Load()
	require.NoError(t, err)
	require.Len(t, pins, len(locations))

	seen := make(map[string]bool)
	for i, p := range pins {
		assert.Equal(t, locations[i].ID, p.ID)
		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
	}
}

func TestGenerateIsByteIdentical(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	first := filepath.Join(dir, "first.json")
	second := filepath.Join(dir, "second.json")

	require.NoError(t, generate(&bytes.Buffer{}, first))
	require.NoError(t, generate(&bytes.Buffer{}, second))

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerateInvalidCoordinateWritesNothing(t *testing.T) {
	resetFlags(t)
	catalogFile = writeCatalog(t, "- id: ok\n  lat: 1\n  lon: 1\n- id: bad\n  lat: .nan\n  lon: 0\n")
	path := filepath.Join(t.TempDir(), "locations.json")

	var stdout bytes.Buffer
	err := generate(&stdout, path)
	require.Error(t, err)
	assert.ErrorIs(t, err, projection.ErrInvalidCoordinate)
	assert.Empty(t, stdout.String())

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerateKeepsExistingFileOnFailure(t *testing.T) {
	resetFlags(t)
	catalogFile = writeCatalog(t, "- id: bad\n  lat: 0\n  lon: .inf\n")
	path := filepath.Join(t.TempDir(), "locations.json")
	require.NoError(t, os.WriteFile(path, []byte("[]\n"), 0o644))

	require.Error(t, generate(&bytes.Buffer{}, path))

	payload, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(payload))
}

func TestGenerateStrictRejectsUnverified(t *testing.T) {
	resetFlags(t)
	strict = true
	path := filepath.Join(t.TempDir(), "locations.json")

	err := generate(&bytes.Buffer{}, path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnverified)
	assert.Contains(t, err.Error(), "iit")
}

func TestList(t *testing.T) {
	resetFlags(t)

	var stdout bytes.Buffer
	require.NoError(t, list(&stdout))
	assert.Contains(t, stdout.String(), "ensma")
	assert.Contains(t, stdout.String(), "50.1156")

	outputJSON = true
	stdout.Reset()
	require.NoError(t, list(&stdout))

	var pins []models.Pin
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &pins))
	assert.Len(t, pins, 5)
}

func TestOverlaps(t *testing.T) {
	resetFlags(t)

	var stdout bytes.Buffer
	require.NoError(t, overlaps(&stdout, defaultOverlapRadius))
	assert.Contains(t, stdout.String(), "ensma <-> safran")

	stdout.Reset()
	require.NoError(t, overlaps(&stdout, 0))
	assert.Contains(t, stdout.String(), "No overlapping pins")
}

func listedIDs(t *testing.T) []string {
	t.Helper()
	outputJSON = true

	var stdout bytes.Buffer
	require.NoError(t, list(&stdout))

	var pins []models.Pin
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &pins))

	ids := make([]string, len(pins))
	for i, p := range pins {
		ids[i] = p.ID
	}
	return ids
}

func TestListNear(t *testing.T) {
	resetFlags(t)
	nearFlag = "50.1156,24.0828"
	nearCount = 2

	assert.Equal(t, []string{"ensma", "safran"}, listedIDs(t))
}

func TestListBox(t *testing.T) {
	resetFlags(t)
	boxFlag = "45,20,55,30"

	assert.Equal(t, []string{"ensma", "safran", "airbus"}, listedIDs(t))
}

func TestListInvalidFilters(t *testing.T) {
	testCases := []struct {
		name  string
		near  string
		count int
		box   string
	}{
		{"Near needs two numbers", "50", 3, ""},
		{"Near not a number", "x,y", 3, ""},
		{"Near zero neighbors", "50,50", 0, ""},
		{"Box needs four numbers", "", 3, "1,2,3"},
		{"Box inverted", "", 3, "60,60,40,40"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resetFlags(t)
			nearFlag, nearCount, boxFlag = tc.near, tc.count, tc.box
			assert.Error(t, list(&bytes.Buffer{}))
		})
	}
}
