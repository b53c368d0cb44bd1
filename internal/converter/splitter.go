package converter

import (
	"fmt"

	"github.com/bnema/webkit-content-blocker/internal/encoder"
	"github.com/bnema/webkit-content-blocker/internal/models"
)

// MaxRulesPerFile is Safari/WebKit's limit per content blocker
const MaxRulesPerFile = 50000

// Splitter splits rules into chunks respecting the 50k limit
type Splitter struct {
	maxRules int
}

// Part is one content blocker's worth of rules
type Part struct {
	Name  string
	Rules []models.Rule
}

// NewSplitter creates a splitter with the given max rules per file
func NewSplitter(maxRules int) *Splitter {
	if maxRules <= 0 || maxRules > MaxRulesPerFile {
		maxRules = MaxRulesPerFile
	}
	return &Splitter{maxRules: maxRules}
}

// Split divides rules into consecutive parts.  A list that fits in one part
// keeps baseName, otherwise parts are named baseName-partN starting at 1.
func (s *Splitter) Split(rules []models.Rule, baseName string) []Part {
	if len(rules) <= s.maxRules {
		return []Part{{Name: baseName, Rules: rules}}
	}

	numParts := (len(rules) + s.maxRules - 1) / s.maxRules
	parts := make([]Part, 0, numParts)
	for i := range numParts {
		start := i * s.maxRules
		end := min(start+s.maxRules, len(rules))

		parts = append(parts, Part{
			Name:  fmt.Sprintf("%s-part%d", baseName, i+1),
			Rules: rules[start:end],
		})
	}

	return parts
}

// Deduplicate drops rules whose canonical encoding matches an earlier rule
func Deduplicate(rules []models.Rule) []models.Rule {
	seen := make(map[string]struct{}, len(rules))
	result := make([]models.Rule, 0, len(rules))

	for _, r := range rules {
		key := string(encoder.EncodeRule(r))
		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}
		result = append(result, r)
	}

	return result
}
