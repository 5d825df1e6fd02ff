package identifier

import (
	"regexp"
	"sort"
)

// Candidate is a substring of recognised text that plausibly identifies a book.
type Candidate struct {
	Value string `json:"value"`
	Rule  string `json:"rule"`
}

type extractRule struct {
	label   string
	pattern *regexp.Regexp
}

// Order matters: the first rule to produce a value keeps it.
var extractRules = []extractRule{
	{"library-code", regexp.MustCompile(`LIB\d{6,12}`)},
	{"long-digits", regexp.MustCompile(`\d{8,15}`)},
	{"letters-digits", regexp.MustCompile(`[A-Z]{1,3}\d{6,12}`)},
	{"hyphenated", regexp.MustCompile(`\d{3,5}-\d{3,5}-\d{3,5}`)},
	{"dotted", regexp.MustCompile(`\d{4,6}\.\d{4,6}`)},
	{"prefixed-digits", regexp.MustCompile(`[A-Z]{2,4}\d{8,12}`)},
	{"isbn-length", regexp.MustCompile(`\d{13}`)},
	{"ten-digits", regexp.MustCompile(`\d{10}`)},
	{"nine-digits", regexp.MustCompile(`\d{9}`)},
	{"letter-digits", regexp.MustCompile(`[A-Z]\d{8,12}`)},
}

var fallbackRule = extractRule{"fallback", regexp.MustCompile(`[A-Z0-9]{6,}`)}

// ExtractCandidates returns the distinct identifier candidates found in text,
// longest first. Ties keep the order in which rules found them. The
// permissive fallback rule only runs when no other rule matched.
func ExtractCandidates(text string) []Candidate {
	text = Fold(text)

	var out []Candidate
	seen := make(map[string]struct{})
	collect := func(r extractRule) {
		for _, m := range r.pattern.FindAllString(text, -1) {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, Candidate{Value: m, Rule: r.label})
		}
	}

	for _, r := range extractRules {
		collect(r)
	}
	if len(out) == 0 {
		collect(fallbackRule)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Value) > len(out[j].Value)
	})
	return out
}

// CandidateValues strips rule labels.
func CandidateValues(candidates []Candidate) []string {
	values := make([]string, len(candidates))
	for i, c := range candidates {
		values[i] = c.Value
	}
	return values
}
