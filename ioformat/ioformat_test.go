package ioformat

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DRuanli/PHANTOM/core"
)

func TestReadDatabaseParsesLines(t *testing.T) {
	input := `# a comment
T1 1.0 a:1.0:10 b:1.0:20

T2 0.5 a:0.5:10
`
	db, err := ReadDatabase(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, db.Transactions, 2)
	assert.Equal(t, "T1", db.Transactions[0].TID)
	assert.InDelta(t, 1.0, db.Transactions[0].Prob, 1e-9)
	assert.Equal(t, core.ItemFact{Prob: 1.0, Utility: 20}, db.Transactions[0].Items["b"])
}

func TestReadDatabaseRejectsMalformedTriplet(t *testing.T) {
	_, err := ReadDatabase(strings.NewReader("T1 1.0 a:1.0\n"))
	require.Error(t, err)
	var malformed *ErrMalformedLine
	assert.ErrorAs(t, err, &malformed)
}

func TestReadDatabaseRejectsOutOfRangeProbability(t *testing.T) {
	_, err := ReadDatabase(strings.NewReader("T1 1.5 a:1.0:10\n"))
	require.Error(t, err)
}

func TestWriteResultsFormatsSixDigitFloats(t *testing.T) {
	var buf bytes.Buffer
	results := []core.Itemset{
		{Items: []string{"c", "a"}, EU: 40, UB: 45.5, HasNeg: false},
	}
	err := WriteResults(&buf, results, 12*time.Millisecond, time.Unix(0, 0).UTC())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "# PHANTOM Mining Results")
	assert.Contains(t, out, "1,{a, c},40.000000,45.500000,false")
}
