// Package validation performs JSON-schema validation of inbound request
// bodies before they are decoded into typed requests.
package validation

import (
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "livebetter/internal/common/errors"
)

// rankRequestSchema mirrors the documented request contract. Unknown fields
// are rejected so typos in weight names fail loudly instead of silently
// scoring with defaults.
var rankRequestSchema = map[string]interface{}{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []interface{}{"salary"},
	"properties": map[string]interface{}{
		"salary": map[string]interface{}{
			"type": "integer", "minimum": 10000, "maximum": 1000000,
		},
		"family_size": map[string]interface{}{
			"type": "integer", "minimum": 1, "maximum": 10,
		},
		"rent_cap_pct": map[string]interface{}{
			"type": "number", "minimum": 0.1, "maximum": 0.6,
		},
		"population_min": map[string]interface{}{
			"type": "integer", "minimum": 0,
		},
		"limit": map[string]interface{}{
			"type": "integer", "minimum": 1, "maximum": 200,
		},
		"transport_mode": map[string]interface{}{
			"type": "string",
			"enum": []interface{}{"public_transit", "car", "bike_walk"},
		},
		"affordability_weight": weightProperty(),
		"schools_weight":       weightProperty(),
		"safety_weight":        weightProperty(),
		"weather_weight":       weightProperty(),
		"healthcare_weight":    weightProperty(),
		"walkability_weight":   weightProperty(),
	},
}

func weightProperty() map[string]interface{} {
	return map[string]interface{}{"type": "number", "minimum": 0, "maximum": 10}
}

// ValidateRankRequest checks a decoded JSON body against the rank request
// schema and returns a REQUEST_VALIDATION_FAILED error listing every
// violation.
func ValidateRankRequest(body map[string]interface{}) error {
	schemaLoader := gojsonschema.NewGoLoader(rankRequestSchema)
	documentLoader := gojsonschema.NewGoLoader(body)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return apperrors.NewRequestValidationFailedError(err.Error())
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return apperrors.NewRequestValidationFailedError(strings.Join(errs, "; "))
	}

	return nil
}
