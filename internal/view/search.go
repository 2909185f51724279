package view

import (
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"medbridge/internal/domain"
)

// Segment is a run of displayed text; Match marks a query occurrence.
type Segment struct {
	Text  string `json:"text"`
	Match bool   `json:"match,omitempty"`
}

// SearchResult is the overlay state for one query over a thread.
type SearchResult struct {
	Query   string `json:"query"`
	Active  bool   `json:"active"`
	Count   int    `json:"count"`
	Matches []bool `json:"matches"`
}

// Search reports, per message in order, whether its original and translated
// text together contain query case-insensitively, plus the number of hits.
// A blank query leaves search mode off.
func Search(messages []domain.Message, query string) SearchResult {
	query = strings.TrimSpace(query)
	result := SearchResult{Query: query, Matches: make([]bool, len(messages))}
	if query == "" {
		return result
	}
	result.Active = true
	for i, msg := range messages {
		result.Matches[i] = containsFold(msg.OriginalText+msg.TranslatedText, query)
	}
	result.Count = lo.CountBy(result.Matches, func(m bool) bool { return m })
	return result
}

// Apply annotates rendered messages with the search result, splitting each
// displayed text into highlighted segments.
func Apply(rendered []RenderedMessage, result SearchResult) []RenderedMessage {
	if !result.Active {
		return rendered
	}
	return lo.Map(rendered, func(msg RenderedMessage, i int) RenderedMessage {
		if i < len(result.Matches) {
			msg.Match = result.Matches[i]
		}
		msg.Segments = Highlight(msg.Text, result.Query)
		return msg
	})
}

// Highlight splits text around every case-insensitive occurrence of query.
// Segments concatenate back to text; matched segments keep text's casing.
func Highlight(text, query string) []Segment {
	query = strings.TrimSpace(query)
	if query == "" || text == "" {
		return []Segment{{Text: text}}
	}

	width := utf8.RuneCountInString(query)
	var segments []Segment
	plain := 0
	for i := 0; i < len(text); {
		end, ok := matchAt(text, i, query, width)
		if !ok {
			_, size := utf8.DecodeRuneInString(text[i:])
			i += size
			continue
		}
		if plain < i {
			segments = append(segments, Segment{Text: text[plain:i]})
		}
		segments = append(segments, Segment{Text: text[i:end], Match: true})
		i, plain = end, end
	}
	if plain < len(text) {
		segments = append(segments, Segment{Text: text[plain:]})
	}
	return segments
}

func containsFold(text, query string) bool {
	width := utf8.RuneCountInString(query)
	for i := 0; i < len(text); {
		if _, ok := matchAt(text, i, query, width); ok {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return false
}

// matchAt compares the width runes of text starting at byte offset start
// against query and returns the end offset of the window on a match.
func matchAt(text string, start int, query string, width int) (int, bool) {
	end := start
	for n := 0; n < width; n++ {
		if end >= len(text) {
			return 0, false
		}
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}
	if !strings.EqualFold(text[start:end], query) {
		return 0, false
	}
	return end, true
}
