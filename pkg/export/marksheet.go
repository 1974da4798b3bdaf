package export

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// MarkSheetRow is a single student line in a mark sheet.
type MarkSheetRow struct {
	StudentName string
	Score       string
	Comment     string
}

// MarkSheet describes an assessment's scores in the export format consumed
// by spreadsheet tools: a preamble identifying the assessment, a blank line,
// a column header and one quoted row per student.
type MarkSheet struct {
	AssessmentTitle string
	ClassName       string
	Subject         string
	MaxScore        float64
	Rows            []MarkSheetRow
}

// RenderMarkSheet produces the CSV bytes for a mark sheet. Every student
// field is quoted; missing marks render as empty score and comment fields.
func RenderMarkSheet(sheet MarkSheet) []byte {
	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "Assessment: %s\n", sheet.AssessmentTitle)
	fmt.Fprintf(buf, "Class: %s, Subject: %s\n", sheet.ClassName, sheet.Subject)
	fmt.Fprintf(buf, "Max Score: %s\n", formatScore(sheet.MaxScore))
	buf.WriteString("\n")
	buf.WriteString("Student Name,Score,Comment\n")
	for _, row := range sheet.Rows {
		fmt.Fprintf(buf, "%s,%s,%s\n", quote(row.StudentName), quote(row.Score), quote(row.Comment))
	}
	return buf.Bytes()
}

func quote(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
