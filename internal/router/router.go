// Package router implements the workforce dispatcher: it scores a
// natural-language request against every agent in the roster and picks
// the agent that should handle it.
package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fibreflow/workforce/internal/config"
	"github.com/fibreflow/workforce/pkg/models"
)

// phraseWeight is the score contributed by a matched phrase. Phrases are
// stronger signals than single keywords because they carry word order.
const phraseWeight = 5

// Router routes requests to agents by weighted keyword and phrase matching.
type Router struct {
	roster   *config.Roster
	minScore int
}

// New creates a Router over the given roster.
// minScore is the total score below which a request falls back; values
// under 1 are clamped to 1.
func New(roster *config.Roster, minScore int) *Router {
	if minScore < 1 {
		minScore = 1
	}
	return &Router{roster: roster, minScore: minScore}
}

// Route scores the request text against every agent and returns the decision.
// Routing rules:
//  1. An explicit "@agent:" prefix bypasses scoring entirely.
//  2. Each agent keyword present in the text adds its weight; each phrase
//     present adds phraseWeight. Scores are additive and order-independent.
//  3. The highest score wins. Ties break by Priority, then by name.
//  4. A winning score below minScore routes to the fallback agent.
func (r *Router) Route(text string) (*models.RouteDecision, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("empty request text")
	}

	// Explicit override: "@database: why is the sync slow"
	if name, rest, ok := parseOverride(trimmed); ok {
		if r.roster.Get(name) == nil {
			return nil, fmt.Errorf("unknown agent %q (roster: %s)", name, strings.Join(r.roster.Names(), ", "))
		}
		if strings.TrimSpace(rest) == "" {
			return nil, fmt.Errorf("empty request text after @%s: override", name)
		}
		return &models.RouteDecision{Agent: name, Override: true, Confidence: 1}, nil
	}

	norm := normalize(trimmed)
	tokens := tokenSet(norm)

	type scored struct {
		def     *models.AgentDefinition
		score   int
		matched []string
	}

	var results []scored
	for _, def := range r.roster.Agents() {
		s := scored{def: def}
		for kw, weight := range def.Keywords {
			if tokens[normalizeToken(kw)] {
				s.score += weight
				s.matched = append(s.matched, kw)
			}
		}
		for _, phrase := range def.Phrases {
			if strings.Contains(norm, normalize(phrase)) {
				s.score += phraseWeight
				s.matched = append(s.matched, phrase)
			}
		}
		sort.Strings(s.matched)
		results = append(results, s)
	}

	// Highest score first; ties break by priority then name so that
	// routing is deterministic for a given roster and request text.
	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		if results[i].def.Priority != results[j].def.Priority {
			return results[i].def.Priority > results[j].def.Priority
		}
		return results[i].def.Name < results[j].def.Name
	})

	best := results[0]
	if best.score < r.minScore {
		fb := r.roster.Fallback()
		if fb == nil {
			return nil, fmt.Errorf("no agent matched and roster has no fallback")
		}
		return &models.RouteDecision{Agent: fb.Name, Fallback: true}, nil
	}

	decision := &models.RouteDecision{
		Agent:   best.def.Name,
		Score:   best.score,
		Matched: best.matched,
	}

	// Confidence is the margin over the runner-up, normalized by the
	// winning score. A sole matcher gets confidence 1.
	if len(results) > 1 && results[1].score > 0 {
		decision.Confidence = float64(best.score-results[1].score) / float64(best.score)
	} else {
		decision.Confidence = 1
	}

	return decision, nil
}

// parseOverride extracts an "@agent:" prefix.
// Returns the agent name, the remaining text, and whether a prefix was found.
func parseOverride(text string) (name, rest string, ok bool) {
	if !strings.HasPrefix(text, "@") {
		return "", "", false
	}
	idx := strings.Index(text, ":")
	if idx < 2 {
		return "", "", false
	}
	name = strings.TrimSpace(text[1:idx])
	if name == "" || strings.ContainsAny(name, " \t") {
		return "", "", false
	}
	return name, text[idx+1:], true
}

// normalize lowercases the text and strips punctuation around words.
func normalize(text string) string {
	fields := strings.Fields(strings.ToLower(text))
	for i, f := range fields {
		fields[i] = strings.Trim(f, ",.;:!?\"'`()[]{}")
	}
	return strings.Join(fields, " ")
}

// normalizeToken lowercases and trims a single keyword.
func normalizeToken(token string) string {
	return strings.Trim(strings.ToLower(token), ",.;:!?\"'`()[]{}")
}

// tokenSet splits normalized text into a word set.
func tokenSet(norm string) map[string]bool {
	set := make(map[string]bool)
	for _, f := range strings.Fields(norm) {
		if f != "" {
			set[f] = true
		}
	}
	return set
}
