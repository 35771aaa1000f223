package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCSV(t *testing.T) {
	payload, err := Render(Dataset{
		Headers: []string{"Student", "Status"},
		Rows:    [][]string{{"Ann Lee", "ACTIVE"}, {"Bo, Jr", "DROPPED"}},
	}, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "Student,Status\nAnn Lee,ACTIVE\n\"Bo, Jr\",DROPPED\n", string(payload))
}

func TestRenderPDF(t *testing.T) {
	payload, err := Render(Dataset{
		Title:   "Roster",
		Headers: []string{"Student", "Status"},
		Rows:    [][]string{{"Ann Lee", "ACTIVE"}},
	}, FormatPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF")))
}

func TestRenderRejectsRaggedRows(t *testing.T) {
	_, err := Render(Dataset{Headers: []string{"a", "b"}, Rows: [][]string{{"1"}}}, FormatCSV)
	assert.Error(t, err)

	_, err = Render(Dataset{}, FormatPDF)
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	assert.Equal(t, "application/pdf", f.ContentType())

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}
