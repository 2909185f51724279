package view

import "strings"

// EmptySectionBody stands in for a section the summary left blank.
const EmptySectionBody = "No significant findings recorded."

const sectionDelimiter = "\n- "

// Section is one titled block of a clinical summary.
type Section struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Summary is the display form of a raw summary. When Structured is false the
// raw text is shown as a single block.
type Summary struct {
	Raw        string    `json:"raw"`
	Structured bool      `json:"structured"`
	Sections   []Section `json:"sections"`
}

// ParseSummary splits raw on bulleted lines. Text before the first bullet is
// a preamble and is dropped.
func ParseSummary(raw string) Summary {
	parts := strings.Split(raw, sectionDelimiter)
	if len(parts) <= 1 {
		return Summary{Raw: raw}
	}

	sections := make([]Section, 0, len(parts)-1)
	for _, part := range parts[1:] {
		title, body, _ := strings.Cut(part, "\n")
		title = strings.TrimSuffix(strings.TrimSpace(title), ":")
		body = strings.TrimSpace(body)
		if body == "" {
			body = EmptySectionBody
		}
		sections = append(sections, Section{Title: title, Body: body})
	}
	return Summary{Raw: raw, Structured: true, Sections: sections}
}
