package nlparse

import (
	"regexp"
	"strconv"
	"strings"

	"livebetter/internal/ranking"
)

var (
	salaryPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\$?(\d+)k`),
		regexp.MustCompile(`\$(\d{5,6})`),
		regexp.MustCompile(`makes?\s+\$?(\d+)k`),
		regexp.MustCompile(`salary[:\s]+\$?(\d+)k`),
	}
	familyPattern = regexp.MustCompile(`family\s+(?:of\s+)?(\d+)`)
)

// weightKeywords maps topic keywords onto the weight they raise.
var weightKeywords = map[string]string{
	"schools":     "schools",
	"school":      "schools",
	"education":   "schools",
	"safety":      "safety",
	"safe":        "safety",
	"crime":       "safety",
	"weather":     "weather",
	"climate":     "weather",
	"healthcare":  "healthcare",
	"hospital":    "healthcare",
	"walkability": "walkability",
	"walkable":    "walkability",
}

// parseWithRules is the offline fallback: keyword and pattern matching over
// lowercased text. It always produces a valid request.
func parseWithRules(text string) ranking.RankRequest {
	req := ranking.RankRequest{
		Salary:              90000,
		FamilySize:          1,
		RentCapPct:          0.3,
		Limit:               50,
		TransportMode:       ranking.ModePublicTransit,
		AffordabilityWeight: 10,
	}

	lower := strings.ToLower(text)

	for _, pattern := range salaryPatterns {
		match := pattern.FindStringSubmatch(lower)
		if match == nil {
			continue
		}
		val, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if val < 1000 {
			val *= 1000
		}
		req.Salary = clampInt(val, ranking.MinSalary, ranking.MaxSalary)
		break
	}

	if containsAny(lower, "single", "just me", "alone") {
		req.FamilySize = 1
	} else if containsAny(lower, "couple", "partner", "spouse") {
		req.FamilySize = 2
	}
	if match := familyPattern.FindStringSubmatch(lower); match != nil {
		if val, err := strconv.Atoi(match[1]); err == nil {
			req.FamilySize = clampInt(val, ranking.MinFamilySize, ranking.MaxFamilySize)
		}
	}

	switch {
	case containsAny(lower, "car", "drive", "driving"):
		req.TransportMode = ranking.ModeCar
	case containsAny(lower, "bike", "walk", "walkable"):
		req.TransportMode = ranking.ModeBikeWalk
	case containsAny(lower, "transit", "bus", "subway", "train"):
		req.TransportMode = ranking.ModePublicTransit
	}

	var importance float64
	switch {
	case containsAny(lower, "very important", "critical", "essential", "must have"):
		importance = 9
	case containsAny(lower, "important", "care about", "need"):
		importance = 7
	case strings.Contains(lower, "nice"):
		importance = 5
	}
	if importance > 0 {
		for keyword, weight := range weightKeywords {
			if strings.Contains(lower, keyword) {
				setWeight(&req, weight, importance)
			}
		}
	}

	return req
}

func setWeight(req *ranking.RankRequest, name string, value float64) {
	switch name {
	case "schools":
		req.SchoolsWeight = value
	case "safety":
		req.SafetyWeight = value
	case "weather":
		req.WeatherWeight = value
	case "healthcare":
		req.HealthcareWeight = value
	case "walkability":
		req.WalkabilityWeight = value
	}
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func containsAny(text string, substrings ...string) bool {
	for _, s := range substrings {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}
