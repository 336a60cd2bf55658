package differ_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/fwojciec/differ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExportFormat(t *testing.T) {
	t.Parallel()

	f, ok := differ.ParseExportFormat("markdown")
	require.True(t, ok)
	assert.Equal(t, differ.ExportMarkdown, f)

	f, ok = differ.ParseExportFormat("MD")
	require.True(t, ok)
	assert.Equal(t, differ.ExportMarkdown, f)

	f, ok = differ.ParseExportFormat("json")
	require.True(t, ok)
	assert.Equal(t, differ.ExportJSON, f)

	_, ok = differ.ParseExportFormat("yaml")
	assert.False(t, ok)
}

func TestExport_Markdown(t *testing.T) {
	t.Parallel()

	t.Run("groups by file and sorts paths", func(t *testing.T) {
		t.Parallel()
		anns := []*differ.Annotation{
			{FilePath: "zeta.go", Line: 2, Kind: differ.KindComment, Body: "last file"},
			{FilePath: "alpha.go", Line: 10, Kind: differ.KindTodo, Body: "rename this"},
			{FilePath: "alpha.go", Line: 20, EndLine: 24, Kind: differ.KindComment, Body: "spans a block", Resolved: true},
		}
		out, err := differ.Export(anns, differ.ExportMarkdown)
		require.NoError(t, err)

		assert.Contains(t, out, "# Code Annotations")
		assert.Contains(t, out, "## alpha.go")
		assert.Contains(t, out, "## zeta.go")
		assert.Less(t, strings.Index(out, "## alpha.go"), strings.Index(out, "## zeta.go"))
		assert.Contains(t, out, "### TODO L10")
		assert.Contains(t, out, "### Comment L20-24 [resolved]")
		assert.Contains(t, out, "rename this")
	})

	t.Run("old side annotations are marked", func(t *testing.T) {
		t.Parallel()
		anns := []*differ.Annotation{
			{FilePath: "gone.go", Line: 7, Side: differ.SideOld, Kind: differ.KindComment, Body: "why was this removed?"},
		}
		out, err := differ.Export(anns, differ.ExportMarkdown)
		require.NoError(t, err)
		assert.Contains(t, out, "### Comment L7 (deleted code)")
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		out, err := differ.Export(nil, differ.ExportMarkdown)
		require.NoError(t, err)
		assert.Equal(t, "# No annotations found\n", out)
	})
}

func TestExport_JSON(t *testing.T) {
	t.Parallel()

	anns := []*differ.Annotation{
		{ID: "id-1", FilePath: "a.go", Line: 3, Kind: differ.KindTodo, Body: "check error", Resolved: true},
	}
	out, err := differ.Export(anns, differ.ExportJSON)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "id-1", decoded[0]["id"])
	assert.Equal(t, "a.go", decoded[0]["file_path"])
	assert.Equal(t, float64(3), decoded[0]["line"])
	assert.Equal(t, "todo", decoded[0]["kind"])
	assert.Equal(t, "new", decoded[0]["side"])
	assert.Equal(t, true, decoded[0]["resolved"])
	_, hasEnd := decoded[0]["end_line"]
	assert.False(t, hasEnd, "zero end_line is omitted")
}
