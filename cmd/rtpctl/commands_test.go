package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/avvvet/keno-services/internal/kenosvc/payout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReport(t *testing.T) {
	out, err := run(t, "report")
	require.NoError(t, err)
	assert.Contains(t, out, "SPOTS")
	// one spot pays 3x on a 1 in 4 chance
	assert.Contains(t, out, "75.00%")
}

func TestAnalyze(t *testing.T) {
	out, err := run(t, "analyze", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "1 spots: RTP 75.00%, house edge 25.00%")
	assert.Contains(t, out, "1 in 4")

	_, err = run(t, "analyze", "11")
	assert.Error(t, err)
}

func TestQuote(t *testing.T) {
	out, err := run(t, "quote", "1", "--bet", "50")
	require.NoError(t, err)
	assert.Contains(t, out, "150")

	_, err = run(t, "quote", "1", "--bet", "0")
	assert.Error(t, err)
}

func TestRecommend_WritesTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recommended.yaml")

	_, err := run(t, "recommend", "--output", path)
	require.NoError(t, err)

	table, err := payout.LoadFile(path)
	require.NoError(t, err)
	assert.True(t, table.Multiplier(10, 10).IsPositive())

	out, err := run(t, "analyze", "5", "--table", path)
	require.NoError(t, err)
	assert.Contains(t, out, "5 spots")
}
