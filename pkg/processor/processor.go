package processor

import (
	"sort"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/xhad/wikiquiz/internal/models"
)

// Capitalised words of at least three letters, hyphens allowed. Word
// boundaries treat any Unicode letter, number or underscore as a word
// character, so "François" yields nothing rather than "Fran". A trailing
// hyphen only ends a word when a word character follows it.
var candidatePattern = regexp2.MustCompile(
	`(?<![\p{L}\p{N}_])[A-Z][a-zA-Z\-]{2,}(?:(?<=[A-Za-z])(?![\p{L}\p{N}_])|(?<=-)(?=[\p{L}\p{N}_]))`,
	regexp2.None)

type ProcessorConfig struct {
	TopCandidates        int
	MaxPerCategory       int
	OrganizationSuffixes []string
	LocationSuffixes     []string
}

// Processor classifies capitalised tokens into people, organizations and
// locations using suffix heuristics. It is deterministic, not real NER.
type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.TopCandidates == 0 {
		config.TopCandidates = 50
	}
	if config.MaxPerCategory == 0 {
		config.MaxPerCategory = 20
	}
	if len(config.OrganizationSuffixes) == 0 {
		config.OrganizationSuffixes = []string{"inc", "corp", "university", "committee", "council"}
	}
	if len(config.LocationSuffixes) == 0 {
		config.LocationSuffixes = []string{"city", "state", "province", "kingdom", "republic"}
	}

	return Processor{
		config: config,
	}
}

func New() Processor {
	return NewWithConfig(ProcessorConfig{})
}

// Extract returns the categorised entity summary of text.
func (p Processor) Extract(text string) models.EntitySummary {
	var people, organizations, locations []string

	for _, name := range p.topCandidates(text) {
		lower := strings.ToLower(name)
		switch {
		case hasAnySuffix(lower, p.config.OrganizationSuffixes):
			organizations = append(organizations, name)
		case hasAnySuffix(lower, p.config.LocationSuffixes):
			locations = append(locations, name)
		default:
			people = append(people, name)
		}
	}

	return models.EntitySummary{
		People:        p.truncate(dedupe(people)),
		Organizations: p.truncate(dedupe(organizations)),
		Locations:     p.truncate(dedupe(locations)),
	}
}

// topCandidates returns the most frequent distinct tokens, ties broken by
// first occurrence.
func (p Processor) topCandidates(text string) []string {
	counts := make(map[string]int)
	var order []string

	for _, token := range findCandidates(text) {
		if counts[token] == 0 {
			order = append(order, token)
		}
		counts[token]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > p.config.TopCandidates {
		order = order[:p.config.TopCandidates]
	}
	return order
}

func findCandidates(text string) []string {
	var tokens []string
	m, err := candidatePattern.FindStringMatch(text)
	for err == nil && m != nil {
		tokens = append(tokens, m.String())
		m, err = candidatePattern.FindNextMatch(m)
	}
	return tokens
}

func (p Processor) truncate(names []string) []string {
	if len(names) > p.config.MaxPerCategory {
		return names[:p.config.MaxPerCategory]
	}
	return names
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

func dedupe(names []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(names))

	for _, name := range names {
		if !seen[name] {
			seen[name] = true
			result = append(result, name)
		}
	}
	return result
}
