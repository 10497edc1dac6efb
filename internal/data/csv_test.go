package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSVDomainsSortsByDriftColumn(t *testing.T) {
	// Rows deliberately out of drift order; feature 0 is the drift column,
	// the last column is the label.
	path := writeCSV(t, "drift,f1,label\n"+
		"3.0,1.0,1\n"+
		"1.0,2.0,0\n"+
		"4.0,3.0,1\n"+
		"2.0,4.0,0\n")

	domains, err := LoadCSVDomains(CSVConfig{
		Path:     path,
		LabelCol: -1,
		DriftCol: 0,
		Domains:  2,
		HasHead:  true,
	})
	require.NoError(t, err)
	require.Len(t, domains, 2)

	// First domain holds the two smallest drift values, in order.
	assert.Equal(t, float32(1.0), domains[0].X.Row(0)[0])
	assert.Equal(t, float32(2.0), domains[0].X.Row(1)[0])
	assert.Equal(t, float32(3.0), domains[1].X.Row(0)[0])
	assert.Equal(t, float32(4.0), domains[1].X.Row(1)[0])
	assert.Equal(t, []int{0, 0}, domains[0].Y)
	assert.Equal(t, []int{1, 1}, domains[1].Y)

	// Global ids run contiguously across the slices.
	assert.Equal(t, []int{0, 1}, domains[0].IDs)
	assert.Equal(t, []int{2, 3}, domains[1].IDs)
}

func TestLoadCSVDomainsMalformedRowFailsLoudly(t *testing.T) {
	// A bad row in the middle must surface as an error, not truncate the
	// dataset to the rows before it.
	path := writeCSV(t, "1.0,1.0,0\n"+
		"2.0,2.0,0\n"+
		"3.0,3.0\n"+ // wrong field count
		"4.0,4.0,1\n"+
		"5.0,5.0,1\n")

	_, err := LoadCSVDomains(CSVConfig{
		Path:     path,
		LabelCol: -1,
		DriftCol: 0,
		Domains:  2,
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "row 3")
}

func TestLoadCSVDomainsDriftColIndexesFeatureVector(t *testing.T) {
	// With the label in file column 0, drift_col 0 addresses the first
	// remaining feature (file column 1).
	path := writeCSV(t, "0,3.0,10\n"+
		"0,1.0,20\n"+
		"1,4.0,30\n"+
		"1,2.0,40\n")

	domains, err := LoadCSVDomains(CSVConfig{
		Path:     path,
		LabelCol: 0,
		DriftCol: 0,
		Domains:  2,
	})
	require.NoError(t, err)

	assert.Equal(t, float32(1.0), domains[0].X.Row(0)[0])
	assert.Equal(t, float32(2.0), domains[0].X.Row(1)[0])
	assert.Equal(t, float32(3.0), domains[1].X.Row(0)[0])
	assert.Equal(t, float32(4.0), domains[1].X.Row(1)[0])
}

func TestLoadCSVDomainsValidation(t *testing.T) {
	_, err := LoadCSVDomains(CSVConfig{Path: "nope.csv", Domains: 1})
	assert.Error(t, err, "too few domains")

	_, err = LoadCSVDomains(CSVConfig{Path: "does-not-exist.csv", Domains: 2})
	assert.Error(t, err)

	path := writeCSV(t, "1.0,bad-label\n")
	_, err = LoadCSVDomains(CSVConfig{Path: path, LabelCol: -1, DriftCol: 0, Domains: 2})
	assert.Error(t, err)
}
