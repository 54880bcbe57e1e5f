// Package agent binds roster definitions to the API loop: model
// selection, prompt assembly, retry handling and request execution.
package agent

import (
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/fibreflow/workforce/pkg/models"
)

// Model identifiers for different capability tiers.
const (
	// ModelHaiku is the lightweight, fast model for simple lookups.
	ModelHaiku = anthropic.ModelClaude3_5Haiku20241022
	// ModelSonnet is the balanced model for standard operational work.
	ModelSonnet = anthropic.ModelClaudeSonnet4_20250514
	// ModelOpus is the most capable model for deep diagnosis.
	ModelOpus = anthropic.ModelClaudeOpus4_5_20251101
)

// Keywords that nudge a request down to haiku (simple lookups).
var lightKeywords = []string{
	"status",
	"list",
	"show",
	"how many",
	"uptime",
}

// Keywords that nudge a request up to opus (risky or multi-step work).
var deepKeywords = []string{
	"migration",
	"schema",
	"diagnose",
	"root cause",
	"data loss",
}

// TierDefaultModels maps tiers to their default (primary) models.
var TierDefaultModels = map[models.Tier]anthropic.Model{
	models.TierLight:    ModelHaiku,
	models.TierStandard: ModelSonnet,
	models.TierDeep:     ModelOpus,
}

// SelectModel chooses the model for a request based on the agent's tier
// and the request text. Keyword nudges only ever move the model within
// one step of the tier default: a light agent never gets opus, a deep
// agent never gets haiku.
func SelectModel(def *models.AgentDefinition, requestText string) anthropic.Model {
	base := tierDefault(def.Tier)
	text := strings.ToLower(requestText)

	if def.Tier != models.TierDeep {
		for _, kw := range lightKeywords {
			if strings.Contains(text, kw) {
				return ModelHaiku
			}
		}
	}

	if def.Tier != models.TierLight {
		for _, kw := range deepKeywords {
			if strings.Contains(text, kw) {
				return ModelOpus
			}
		}
	}

	return base
}

// tierDefault returns the default model for a tier.
func tierDefault(tier models.Tier) anthropic.Model {
	if model, ok := TierDefaultModels[tier]; ok {
		return model
	}
	// Fallback to sonnet if tier is unknown
	return ModelSonnet
}
