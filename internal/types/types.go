// Package types defines the response schemas and session records shared by
// every TIMEFOLD component: personas and councils, scenarios and simulation
// batches, history entries, and workflow stages.
package types

import (
	"strings"
)

// CouncilSize is the number of personas in every council.
const CouncilSize = 3

// ScenarioCount is the number of scenarios in every simulation batch.
const ScenarioCount = 3

// SeedTitle is the title of the first history entry.
const SeedTitle = "START"

// ImageOnlyDescription is used as the seed description when only an image is supplied.
const ImageOnlyDescription = "Analyze the uploaded visual data."

// =============================================================================
// COUNCIL
// =============================================================================

// Persona is one synthetic expert on the council.
type Persona struct {
	Name   string `json:"name"`
	Role   string `json:"role"`
	Stance string `json:"stance"`
	Avatar string `json:"avatar"`
}

// Council is the panel of personas advising one simulation step.
type Council struct {
	Agents []Persona `json:"agents"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// TimeHorizon is one of three fixed horizon labels.
type TimeHorizon string

const (
	HorizonShort TimeHorizon = "Short Term (0-6m)"
	HorizonMid   TimeHorizon = "Mid Term (1-2y)"
	HorizonLong  TimeHorizon = "Long Term (5y+)"
)

// TimeHorizons lists the valid horizons in display order.
func TimeHorizons() []TimeHorizon {
	return []TimeHorizon{HorizonShort, HorizonMid, HorizonLong}
}

// ParseTimeHorizon normalizes a model-provided horizon label.
// "short term", "Short Term (0-6m)" and "SHORT" all map to HorizonShort.
func ParseTimeHorizon(s string) (TimeHorizon, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "":
		return "", false
	case strings.HasPrefix(v, "short"):
		return HorizonShort, true
	case strings.HasPrefix(v, "mid"), strings.HasPrefix(v, "medium"):
		return HorizonMid, true
	case strings.HasPrefix(v, "long"):
		return HorizonLong, true
	}
	return "", false
}

// RiskLevel is one of four fixed risk labels.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// RiskLevels lists the valid risk levels in ascending severity.
func RiskLevels() []RiskLevel {
	return []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical}
}

// ParseRiskLevel normalizes a model-provided risk label, case-insensitively.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	v := strings.TrimSpace(s)
	for _, r := range RiskLevels() {
		if strings.EqualFold(v, string(r)) {
			return r, true
		}
	}
	return "", false
}

// Scenario is one candidate future produced by a simulation.
type Scenario struct {
	ID                  string      `json:"id"`
	Title               string      `json:"title"`
	Description         string      `json:"description"`
	Probability         int         `json:"probability"`
	TimeHorizon         TimeHorizon `json:"time_horizon"`
	RiskLevel           RiskLevel   `json:"risk_level"`
	ImpactScore         int         `json:"impact_score"`
	DataConfidence      int         `json:"data_confidence"`
	AssumptionStability int         `json:"assumption_stability"`
	ReasoningTrace      string      `json:"reasoning_trace"`
}

// SimulationBatch is the full output of one simulation call.
type SimulationBatch struct {
	Scenarios      []Scenario `json:"scenarios"`
	Synthesis      string     `json:"synthesis"`
	BlackSwanAlert string     `json:"black_swan_alert,omitempty"`
}

// HasAlert reports whether the model flagged a black swan event.
func (b *SimulationBatch) HasAlert() bool {
	return b != nil && strings.TrimSpace(b.BlackSwanAlert) != ""
}

// Find returns the scenario with the given id.
func (b *SimulationBatch) Find(id string) (Scenario, bool) {
	if b == nil {
		return Scenario{}, false
	}
	for _, sc := range b.Scenarios {
		if sc.ID == id {
			return sc, true
		}
	}
	return Scenario{}, false
}

// =============================================================================
// HISTORY
// =============================================================================

// HistoryEntry is one node on the history spine: the seed or a chosen scenario.
type HistoryEntry struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Scenario    *Scenario `json:"scenario,omitempty"`
}

// SeedEntry builds the first history entry from the user's context.
func SeedEntry(description string) HistoryEntry {
	return HistoryEntry{Title: SeedTitle, Description: description}
}

// EntryFromScenario builds a history entry carrying the chosen scenario's metrics.
func EntryFromScenario(sc Scenario) HistoryEntry {
	c := sc
	return HistoryEntry{Title: sc.Title, Description: sc.Description, Scenario: &c}
}

// IsSeed reports whether the entry is the original seed.
func (e HistoryEntry) IsSeed() bool {
	return e.Scenario == nil
}

// =============================================================================
// WORKFLOW
// =============================================================================

// Stage is a workflow state.
type Stage int

const (
	StageInput Stage = iota
	StageRecruiting
	StageSimulating
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageInput:
		return "INPUT"
	case StageRecruiting:
		return "RECRUITING"
	case StageSimulating:
		return "SIMULATING"
	}
	return "UNKNOWN"
}

// Image is an attached visual context, passed to the backend as opaque bytes.
type Image struct {
	Name     string
	MIMEType string
	Data     []byte
}
