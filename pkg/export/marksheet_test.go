package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkSheet(t *testing.T) {
	sheet := MarkSheet{
		AssessmentTitle: "Midterm",
		ClassName:       "10-A",
		Subject:         "Math",
		MaxScore:        100,
		Rows: []MarkSheetRow{
			{StudentName: "Alice A", Score: "87.5", Comment: "good"},
			{StudentName: "Bob B"},
		},
	}

	got := string(RenderMarkSheet(sheet))
	want := "Assessment: Midterm\n" +
		"Class: 10-A, Subject: Math\n" +
		"Max Score: 100\n" +
		"\n" +
		"Student Name,Score,Comment\n" +
		"\"Alice A\",\"87.5\",\"good\"\n" +
		"\"Bob B\",\"\",\"\"\n"
	assert.Equal(t, want, got)
	assert.NotContains(t, got, "Weight")
}

func TestRenderMarkSheetEscapesQuotes(t *testing.T) {
	sheet := MarkSheet{
		AssessmentTitle: "Quiz",
		ClassName:       "10-A",
		Subject:         "English",
		MaxScore:        10,
		Rows:            []MarkSheetRow{{StudentName: `Carl "CJ" J`, Score: "8", Comment: ""}},
	}

	got := string(RenderMarkSheet(sheet))
	assert.Contains(t, got, `"Carl ""CJ"" J","8",""`)
}

func TestRenderMarkSheetFractionalMaxScore(t *testing.T) {
	got := string(RenderMarkSheet(MarkSheet{AssessmentTitle: "Lab", ClassName: "11-B", Subject: "Physics", MaxScore: 12.5}))
	assert.Contains(t, got, "Max Score: 12.5\n")
}
