package differ

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ExportFormat selects the export serialization.
type ExportFormat int

// Export formats.
const (
	ExportMarkdown ExportFormat = iota
	ExportJSON
)

// ParseExportFormat parses a format name.
func ParseExportFormat(s string) (ExportFormat, bool) {
	switch strings.ToLower(s) {
	case "md", "markdown":
		return ExportMarkdown, true
	case "json":
		return ExportJSON, true
	}
	return ExportMarkdown, false
}

// Export serializes annotations in the given format, grouped by file.
func Export(anns []*Annotation, format ExportFormat) (string, error) {
	if format == ExportJSON {
		return exportJSON(anns)
	}
	return exportMarkdown(anns), nil
}

func exportMarkdown(anns []*Annotation) string {
	if len(anns) == 0 {
		return "# No annotations found\n"
	}

	byFile := make(map[string][]*Annotation)
	var files []string
	for _, a := range anns {
		if _, ok := byFile[a.FilePath]; !ok {
			files = append(files, a.FilePath)
		}
		byFile[a.FilePath] = append(byFile[a.FilePath], a)
	}
	sort.Strings(files)

	var b strings.Builder
	b.WriteString("# Code Annotations\n\n")
	for _, path := range files {
		fmt.Fprintf(&b, "## %s\n\n", path)
		for _, a := range byFile[path] {
			badge := "Comment"
			if a.Kind == KindTodo {
				badge = "TODO"
			}
			lines := fmt.Sprintf("L%d", a.Line)
			if a.EndLine > a.Line {
				lines = fmt.Sprintf("L%d-%d", a.Line, a.EndLine)
			}
			side := ""
			if a.Side == SideOld {
				side = " (deleted code)"
			}
			resolved := ""
			if a.Resolved {
				resolved = " [resolved]"
			}
			fmt.Fprintf(&b, "### %s %s%s%s\n\n%s\n\n", badge, lines, side, resolved, a.Body)
		}
	}
	return b.String()
}

type exportAnnotation struct {
	ID       string `json:"id"`
	FilePath string `json:"file_path"`
	Line     int    `json:"line"`
	EndLine  int    `json:"end_line,omitempty"`
	Side     string `json:"side"`
	Kind     string `json:"kind"`
	Body     string `json:"body"`
	Resolved bool   `json:"resolved"`
}

func exportJSON(anns []*Annotation) (string, error) {
	out := make([]exportAnnotation, 0, len(anns))
	for _, a := range anns {
		out = append(out, exportAnnotation{
			ID:       a.ID,
			FilePath: a.FilePath,
			Line:     a.Line,
			EndLine:  a.EndLine,
			Side:     a.Side.String(),
			Kind:     a.Kind.String(),
			Body:     a.Body,
			Resolved: a.Resolved,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", OpError("export", "", err)
	}
	return string(data) + "\n", nil
}
