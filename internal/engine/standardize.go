package engine

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ginjaninja78/schedule-extractor/internal/config"
)

// VocabularyStandardizer canonicalizes labels against a profile's aliases
// and industry vocabulary. Labels it does not know that are written in a
// single case ("SOFTWARE", "first lien") are title-cased; mixed-case
// labels are kept as written.
type VocabularyStandardizer struct {
	known map[string]string
}

// NewVocabularyStandardizer builds a standardizer from a profile.
func NewVocabularyStandardizer(profile *config.SourceProfile) *VocabularyStandardizer {
	s := &VocabularyStandardizer{
		known: make(map[string]string),
	}
	for _, v := range profile.IndustryVocabulary {
		s.known[labelKey(v)] = v
	}
	for alias, canonical := range profile.LabelAliases {
		s.known[labelKey(alias)] = canonical
	}
	return s
}

// Standardize implements Standardizer.
func (s *VocabularyStandardizer) Standardize(label string) string {
	label = strings.Join(strings.Fields(label), " ")
	if label == "" {
		return ""
	}
	if canonical, ok := s.known[labelKey(label)]; ok {
		return canonical
	}
	if label == strings.ToUpper(label) || label == strings.ToLower(label) {
		// A Caser is stateful and the engine is shared between goroutines.
		return cases.Title(language.English).String(label)
	}
	return label
}

func labelKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
