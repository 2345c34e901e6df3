// Package nlparse converts free-text living preferences into a structured
// rank request, using a GenAI chat endpoint when configured and a
// rule-based parser otherwise.
package nlparse

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"livebetter/internal/common/config"
	apperrors "livebetter/internal/common/errors"
	"livebetter/internal/common/logger"
	"livebetter/internal/ranking"
)

const systemPrompt = `You are a helpful assistant that converts natural language descriptions of living preferences into structured data for a city affordability tool.

Extract the following information from the user's text and return ONLY a JSON object with these exact fields:
- salary (number, 10000-1000000): annual pre-tax salary in USD
- family_size (number, 1-10): number of people in household
- rent_cap_pct (number, 0.1-0.6): maximum rent as % of income (default 0.3)
- population_min (number, 0/100000/250000/500000/1000000): minimum city population filter
- limit (number, 1-200): max number of results (default 50)
- transport_mode (string, "public_transit"/"car"/"bike_walk"): transportation preference
- affordability_weight (number, 0-10): how much affordability matters (default 10)
- schools_weight (number, 0-10): how much school quality matters (default 0)
- safety_weight (number, 0-10): how much safety matters (default 0)
- weather_weight (number, 0-10): how much weather matters (default 0)
- healthcare_weight (number, 0-10): how much healthcare matters (default 0)
- walkability_weight (number, 0-10): how much walkability matters (default 0)

Guidelines:
- If salary is mentioned with "k" suffix, multiply by 1000 (e.g., "75k" = 75000)
- Common phrases for transport_mode:
  * "public transit", "bus", "subway", "train" -> "public_transit"
  * "car", "drive", "driving" -> "car"
  * "bike", "walk", "walkable" -> "bike_walk"
- For weights, interpret importance levels:
  * "very important", "critical", "essential", "must have" -> 9-10
  * "important", "care about" -> 7-8
  * "somewhat important", "nice to have" -> 4-6
  * "not important", "don't care" -> 0-2
- If a weight is mentioned, set it accordingly. Otherwise use defaults.
- If family_size is described as "single", "alone", "just me" -> 1
- If family mentions "spouse", "partner", "couple" -> 2
- Add 1 for each child mentioned
- Default values for unmentioned fields:
  * salary: 90000
  * family_size: 1
  * rent_cap_pct: 0.3
  * population_min: 0
  * limit: 50
  * transport_mode: "public_transit"
  * all weights: keep defaults (affordability=10, others=0)

Return ONLY valid JSON, no other text.`

// Parser turns free text into rank requests.
type Parser struct {
	cfg    config.GenAIConfig
	client *http.Client
	logger logger.Logger
}

// NewParser builds a parser. An empty API key disables the GenAI path; the
// rule-based parser handles everything in that case.
func NewParser(cfg config.GenAIConfig, log logger.Logger) *Parser {
	return &Parser{
		cfg: cfg,
		// No client timeout; the request context bounds every call.
		client: &http.Client{},
		logger: log,
	}
}

// Parse converts text into a validated rank request. GenAI failures that
// look like exhausted quota fall back to the rule-based parser; malformed
// model output does not, since retrying rules on good-faith text the model
// already rejected would mask the real problem.
func (p *Parser) Parse(ctx context.Context, text string) (*ranking.RankRequest, error) {
	if p.cfg.APIKey == "" || p.cfg.BaseURL == "" {
		req := parseWithRules(text)
		return &req, nil
	}

	req, err := p.parseWithGenAI(ctx, text)
	if err != nil {
		if isQuotaError(err) {
			p.logger.WithError(err).Warn("GenAI quota exhausted, using rule-based parser", nil)
			fallback := parseWithRules(text)
			return &fallback, nil
		}
		return nil, err
	}
	return req, nil
}

func isQuotaError(err error) bool {
	msg := err.Error()
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		msg += " " + stdErr.Details
	}
	return strings.Contains(strings.ToLower(msg), "quota")
}
