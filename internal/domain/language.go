package domain

import "strings"

// Languages lists the selectable consultation languages.
var Languages = []string{
	"English", "Spanish", "French", "Arabic", "Japanese",
	"German", "Mandarin", "Portuguese", "Hindi", "Russian",
}

// RegenerationLanguages lists the targets offered when redrawing a translation.
var RegenerationLanguages = []string{"English", "Spanish", "French", "German", "Hindi"}

// NormalizeLanguage returns the canonical spelling of name, matched
// case-insensitively against Languages.
func NormalizeLanguage(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, lang := range Languages {
		if strings.EqualFold(lang, name) {
			return lang, true
		}
	}
	return "", false
}
