// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package fuzzy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jeranaias/cmdtree/internal/util"
)

// Defaults for NewMatcher.
const (
	DefaultThreshold      = 3
	DefaultMaxSuggestions = 3
	DefaultSingleTemplate = "Did you mean '%s'?"
	DefaultMultiTemplate  = "Did you mean one of: %s?"
)

// Match is a candidate within the threshold.
type Match struct {
	Candidate string
	Distance  int
}

// Matcher ranks candidates by edit distance.
type Matcher struct {
	threshold      int
	maxSuggestions int
	single         string
	multi          string
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithThreshold sets the largest distance still suggested.
func WithThreshold(n int) Option {
	return func(m *Matcher) {
		if n >= 0 {
			m.threshold = n
		}
	}
}

// WithMaxSuggestions caps the multi-match suggestion list.
func WithMaxSuggestions(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.maxSuggestions = n
		}
	}
}

// WithTemplates overrides the suggestion messages. single takes one %s for
// the candidate, multi one %s for the quoted, comma separated list. Empty
// strings keep the defaults.
func WithTemplates(single, multi string) Option {
	return func(m *Matcher) {
		if single != "" {
			m.single = single
		}
		if multi != "" {
			m.multi = multi
		}
	}
}

// NewMatcher creates a matcher with the defaults and opts applied.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{
		threshold:      DefaultThreshold,
		maxSuggestions: DefaultMaxSuggestions,
		single:         DefaultSingleTemplate,
		multi:          DefaultMultiTemplate,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Threshold returns the largest distance still suggested.
func (m *Matcher) Threshold() int {
	return m.threshold
}

// FindClosest returns the candidate nearest to input within the threshold.
// Ties go to the earlier candidate.
func (m *Matcher) FindClosest(input string, candidates []string) (string, bool) {
	folded := util.Fold(input)
	best, bestDist := "", m.threshold+1
	for _, c := range candidates {
		if d := Distance(folded, util.Fold(c)); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist <= m.threshold
}

// FindSimilar returns every candidate within the threshold, nearest first.
// Candidates at equal distance keep their input order.
func (m *Matcher) FindSimilar(input string, candidates []string) []Match {
	folded := util.Fold(input)
	var matches []Match
	for _, c := range candidates {
		if d := Distance(folded, util.Fold(c)); d <= m.threshold {
			matches = append(matches, Match{Candidate: c, Distance: d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	return matches
}

// FindSimilarGroups keeps only the nearest candidate of each group, such
// as a command and its aliases, then orders the survivors like
// FindSimilar. Groups with nothing in range are dropped.
func (m *Matcher) FindSimilarGroups(input string, groups [][]string) []Match {
	folded := util.Fold(input)
	var matches []Match
	for _, group := range groups {
		best := Match{Distance: m.threshold + 1}
		for _, c := range group {
			if d := Distance(folded, util.Fold(c)); d < best.Distance {
				best = Match{Candidate: c, Distance: d}
			}
		}
		if best.Distance <= m.threshold {
			matches = append(matches, best)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	return matches
}

// Suggestion formats a "did you mean" message for input, or returns "" when
// no candidate is close enough.
func (m *Matcher) Suggestion(input string, candidates []string) string {
	return m.format(m.FindSimilar(input, candidates))
}

// SuggestionGroups is Suggestion over FindSimilarGroups, so a command is
// offered at most once however many aliases it has.
func (m *Matcher) SuggestionGroups(input string, groups [][]string) string {
	return m.format(m.FindSimilarGroups(input, groups))
}

func (m *Matcher) format(matches []Match) string {
	switch len(matches) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf(m.single, matches[0].Candidate)
	}

	if len(matches) > m.maxSuggestions {
		matches = matches[:m.maxSuggestions]
	}
	quoted := make([]string, len(matches))
	for i, match := range matches {
		quoted[i] = "'" + match.Candidate + "'"
	}
	return fmt.Sprintf(m.multi, strings.Join(quoted, ", "))
}
