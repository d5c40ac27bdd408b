package prompt

import (
	"google.golang.org/genai"

	"timefold/internal/types"
)

func str(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

func integer(desc string, min, max float64) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeInteger,
		Description: desc,
		Minimum:     genai.Ptr(min),
		Maximum:     genai.Ptr(max),
	}
}

func exactly(n int64, item *genai.Schema) *genai.Schema {
	return &genai.Schema{
		Type:     genai.TypeArray,
		Items:    item,
		MinItems: genai.Ptr(n),
		MaxItems: genai.Ptr(n),
	}
}

// CouncilSchema is the response schema for recruitment calls.
func CouncilSchema() *genai.Schema {
	persona := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":   str("Name of the expert (No titles like Dr./Prof., use generic or code names)"),
			"role":   str("Specific Expertise (e.g., Supply Chain Analyst)"),
			"stance": str("Strategic stance (e.g., Risk-Averse, Disruptive)"),
			"avatar": str("Single emoji representing the persona"),
		},
		Required:         []string{"name", "role", "stance", "avatar"},
		PropertyOrdering: []string{"name", "role", "stance", "avatar"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"agents": exactly(types.CouncilSize, persona),
		},
		Required: []string{"agents"},
	}
}

// SimulationSchema is the response schema for simulation calls.
func SimulationSchema() *genai.Schema {
	horizons := make([]string, 0, 3)
	for _, h := range types.TimeHorizons() {
		horizons = append(horizons, string(h))
	}
	risks := make([]string, 0, 4)
	for _, r := range types.RiskLevels() {
		risks = append(risks, string(r))
	}

	fields := []string{
		"id", "title", "description", "probability", "time_horizon", "risk_level",
		"impact_score", "data_confidence", "assumption_stability", "reasoning_trace",
	}
	scenario := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":          str("Unique id within this batch (e.g., sc_1)"),
			"title":       str("Short, punchy title"),
			"description": str(""),
			"probability": integer("Probability in percent (0-100)", 0, 100),
			"time_horizon": {
				Type:        genai.TypeString,
				Format:      "enum",
				Enum:        horizons,
				Description: "Short Term (0-6m), Mid Term (1-2y), or Long Term (5y+)",
			},
			"risk_level": {
				Type:        genai.TypeString,
				Format:      "enum",
				Enum:        risks,
				Description: "Low, Medium, High, Critical",
			},
			"impact_score":         integer("1-10", 1, 10),
			"data_confidence":      integer("Confidence in underlying data (0-100)", 0, 100),
			"assumption_stability": integer("How stable are the assumptions? (0-100)", 0, 100),
			"reasoning_trace":      str("Brief explanation of the logic chain and rejected alternatives."),
		},
		Required:         fields,
		PropertyOrdering: fields,
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"scenarios": exactly(types.ScenarioCount, scenario),
			"synthesis": str("Council synthesis of the debate"),
			"black_swan_alert": {
				Type:        genai.TypeString,
				Nullable:    genai.Ptr(true),
				Description: "If a low probability high impact event was detected, describe it here.",
			},
		},
		Required:         []string{"scenarios", "synthesis"},
		PropertyOrdering: []string{"scenarios", "synthesis", "black_swan_alert"},
	}
}
