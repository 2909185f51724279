package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSummarySections(t *testing.T) {
	t.Parallel()

	summary := ParseSummary("Intro.\n- Symptoms:\nCough and fever\n- Plan:\nRest and fluids")
	assert.True(t, summary.Structured)
	assert.Equal(t, []Section{
		{Title: "Symptoms", Body: "Cough and fever"},
		{Title: "Plan", Body: "Rest and fluids"},
	}, summary.Sections)
}

func TestParseSummaryEmptyBodyUsesPlaceholder(t *testing.T) {
	t.Parallel()

	summary := ParseSummary("Report\n- Allergies:\n   \n- Medications:")
	assert.Equal(t, []Section{
		{Title: "Allergies", Body: EmptySectionBody},
		{Title: "Medications", Body: EmptySectionBody},
	}, summary.Sections)
}

func TestParseSummaryWithoutDelimiterIsUnstructured(t *testing.T) {
	t.Parallel()

	raw := "Patient stable. Follow up in two weeks."
	summary := ParseSummary(raw)
	assert.False(t, summary.Structured)
	assert.Empty(t, summary.Sections)
	assert.Equal(t, raw, summary.Raw)
}

func TestParseSummaryStripsOnlyTrailingColon(t *testing.T) {
	t.Parallel()

	summary := ParseSummary("x\n- Time: 10:30:\nbody text\n")
	assert.Equal(t, []Section{{Title: "Time: 10:30", Body: "body text"}}, summary.Sections)
}
