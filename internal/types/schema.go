package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedResponse means the backend text was not valid JSON.
	ErrMalformedResponse = errors.New("malformed model response")
	// ErrSchemaMismatch means the JSON did not match the declared shape.
	ErrSchemaMismatch = errors.New("model response does not match schema")
)

// SchemaError describes a single schema violation.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrSchemaMismatch, e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrSchemaMismatch.
func (e *SchemaError) Unwrap() error {
	return ErrSchemaMismatch
}

func schemaErr(field, format string, args ...interface{}) error {
	return &SchemaError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

var honorifics = []string{
	"dr", "prof", "professor", "mr", "mrs", "ms", "mx", "sir", "dame", "rev", "hon",
	"gen", "general", "col", "colonel", "capt", "captain",
}

func isHonorific(word string) bool {
	word = strings.ToLower(word)
	for _, h := range honorifics {
		if word == h {
			return true
		}
	}
	return false
}

// HasHonorific reports whether a persona name starts with a title such as
// "Dr.", "Prof." or "Gen.", with or without a space after the period.
func HasHonorific(name string) bool {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return false
	}
	first := fields[0]
	// "Dr.Chen"
	if i := strings.Index(first, "."); i > 0 && i < len(first)-1 {
		return isHonorific(first[:i])
	}
	return len(fields) > 1 && isHonorific(strings.TrimSuffix(first, "."))
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the council invariants: exactly three complete personas.
func (c Council) Validate() error {
	if len(c.Agents) != CouncilSize {
		return schemaErr("agents", "expected exactly %d personas, got %d", CouncilSize, len(c.Agents))
	}
	for i, p := range c.Agents {
		field := fmt.Sprintf("agents[%d]", i)
		switch {
		case blank(p.Name):
			return schemaErr(field+".name", "empty")
		case blank(p.Role):
			return schemaErr(field+".role", "empty")
		case blank(p.Stance):
			return schemaErr(field+".stance", "empty")
		case blank(p.Avatar):
			return schemaErr(field+".avatar", "empty")
		case HasHonorific(p.Name):
			return schemaErr(field+".name", "honorific title in %q", p.Name)
		}
	}
	return nil
}

func checkRange(field string, v, min, max int) error {
	if v < min || v > max {
		return schemaErr(field, "%d out of range [%d, %d]", v, min, max)
	}
	return nil
}

// Validate checks field presence and numeric ranges of one scenario.
func (s Scenario) Validate() error {
	switch {
	case blank(s.ID):
		return schemaErr("id", "empty")
	case blank(s.Title):
		return schemaErr("title", "empty")
	case blank(s.Description):
		return schemaErr("description", "empty")
	}
	if _, ok := ParseTimeHorizon(string(s.TimeHorizon)); !ok {
		return schemaErr("time_horizon", "unknown horizon %q", s.TimeHorizon)
	}
	if _, ok := ParseRiskLevel(string(s.RiskLevel)); !ok {
		return schemaErr("risk_level", "unknown risk level %q", s.RiskLevel)
	}
	if err := checkRange("probability", s.Probability, 0, 100); err != nil {
		return err
	}
	if err := checkRange("impact_score", s.ImpactScore, 1, 10); err != nil {
		return err
	}
	if err := checkRange("data_confidence", s.DataConfidence, 0, 100); err != nil {
		return err
	}
	return checkRange("assumption_stability", s.AssumptionStability, 0, 100)
}

// Validate checks the batch invariants: exactly three valid scenarios with
// unique ids and a synthesis.
func (b SimulationBatch) Validate() error {
	if len(b.Scenarios) != ScenarioCount {
		return schemaErr("scenarios", "expected exactly %d scenarios, got %d", ScenarioCount, len(b.Scenarios))
	}
	seen := make(map[string]bool, len(b.Scenarios))
	for i, sc := range b.Scenarios {
		if err := sc.Validate(); err != nil {
			var se *SchemaError
			if errors.As(err, &se) {
				return schemaErr(fmt.Sprintf("scenarios[%d].%s", i, se.Field), "%s", se.Reason)
			}
			return err
		}
		if seen[sc.ID] {
			return schemaErr(fmt.Sprintf("scenarios[%d].id", i), "duplicate id %q", sc.ID)
		}
		seen[sc.ID] = true
	}
	if blank(b.Synthesis) {
		return schemaErr("synthesis", "empty")
	}
	return nil
}

// =============================================================================
// DECODING
// =============================================================================

// Wire shapes use pointers so a missing field is distinguishable from a zero value.

type wirePersona struct {
	Name   *string `json:"name"`
	Role   *string `json:"role"`
	Stance *string `json:"stance"`
	Avatar *string `json:"avatar"`
}

type wireCouncil struct {
	Agents *[]wirePersona `json:"agents"`
}

type wireScenario struct {
	ID                  *string `json:"id"`
	Title               *string `json:"title"`
	Description         *string `json:"description"`
	Probability         *int    `json:"probability"`
	TimeHorizon         *string `json:"time_horizon"`
	RiskLevel           *string `json:"risk_level"`
	ImpactScore         *int    `json:"impact_score"`
	DataConfidence      *int    `json:"data_confidence"`
	AssumptionStability *int    `json:"assumption_stability"`
	ReasoningTrace      *string `json:"reasoning_trace"`
}

type wireSimulation struct {
	Scenarios      *[]wireScenario `json:"scenarios"`
	Synthesis      *string         `json:"synthesis"`
	BlackSwanAlert *string         `json:"black_swan_alert"`
}

func unmarshal(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return schemaErr(typeErr.Field, "expected %s, got %s", typeErr.Type, typeErr.Value)
		}
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

type requiredString struct {
	field string
	value *string
}

func requireStrings(fields ...requiredString) (map[string]string, error) {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if f.value == nil {
			return nil, schemaErr(f.field, "missing")
		}
		out[f.field] = *f.value
	}
	return out, nil
}

// DecodeCouncil parses and validates a council response.
func DecodeCouncil(data []byte) (Council, error) {
	var w wireCouncil
	if err := unmarshal(data, &w); err != nil {
		return Council{}, err
	}
	if w.Agents == nil {
		return Council{}, schemaErr("agents", "missing")
	}

	council := Council{Agents: make([]Persona, 0, len(*w.Agents))}
	for i, p := range *w.Agents {
		prefix := fmt.Sprintf("agents[%d].", i)
		v, err := requireStrings(
			requiredString{prefix + "name", p.Name},
			requiredString{prefix + "role", p.Role},
			requiredString{prefix + "stance", p.Stance},
			requiredString{prefix + "avatar", p.Avatar},
		)
		if err != nil {
			return Council{}, err
		}
		council.Agents = append(council.Agents, Persona{
			Name:   strings.TrimSpace(v[prefix+"name"]),
			Role:   strings.TrimSpace(v[prefix+"role"]),
			Stance: strings.TrimSpace(v[prefix+"stance"]),
			Avatar: strings.TrimSpace(v[prefix+"avatar"]),
		})
	}

	if err := council.Validate(); err != nil {
		return Council{}, err
	}
	return council, nil
}

// DecodeSimulation parses and validates a simulation response.
// Risk level and time horizon labels are normalized to their canonical form.
func DecodeSimulation(data []byte) (SimulationBatch, error) {
	var w wireSimulation
	if err := unmarshal(data, &w); err != nil {
		return SimulationBatch{}, err
	}
	if w.Scenarios == nil {
		return SimulationBatch{}, schemaErr("scenarios", "missing")
	}
	if w.Synthesis == nil {
		return SimulationBatch{}, schemaErr("synthesis", "missing")
	}

	batch := SimulationBatch{
		Scenarios: make([]Scenario, 0, len(*w.Scenarios)),
		Synthesis: strings.TrimSpace(*w.Synthesis),
	}
	if w.BlackSwanAlert != nil {
		batch.BlackSwanAlert = strings.TrimSpace(*w.BlackSwanAlert)
	}

	for i, s := range *w.Scenarios {
		sc, err := decodeScenario(fmt.Sprintf("scenarios[%d].", i), s)
		if err != nil {
			return SimulationBatch{}, err
		}
		batch.Scenarios = append(batch.Scenarios, sc)
	}

	if err := batch.Validate(); err != nil {
		return SimulationBatch{}, err
	}
	return batch, nil
}

func decodeScenario(prefix string, s wireScenario) (Scenario, error) {
	v, err := requireStrings(
		requiredString{prefix + "id", s.ID},
		requiredString{prefix + "title", s.Title},
		requiredString{prefix + "description", s.Description},
		requiredString{prefix + "time_horizon", s.TimeHorizon},
		requiredString{prefix + "risk_level", s.RiskLevel},
		requiredString{prefix + "reasoning_trace", s.ReasoningTrace},
	)
	if err != nil {
		return Scenario{}, err
	}

	ints := []struct {
		field string
		value *int
	}{
		{"probability", s.Probability},
		{"impact_score", s.ImpactScore},
		{"data_confidence", s.DataConfidence},
		{"assumption_stability", s.AssumptionStability},
	}
	for _, f := range ints {
		if f.value == nil {
			return Scenario{}, schemaErr(prefix+f.field, "missing")
		}
	}

	horizon, ok := ParseTimeHorizon(v[prefix+"time_horizon"])
	if !ok {
		return Scenario{}, schemaErr(prefix+"time_horizon", "unknown horizon %q", v[prefix+"time_horizon"])
	}
	risk, ok := ParseRiskLevel(v[prefix+"risk_level"])
	if !ok {
		return Scenario{}, schemaErr(prefix+"risk_level", "unknown risk level %q", v[prefix+"risk_level"])
	}

	return Scenario{
		ID:                  strings.TrimSpace(v[prefix+"id"]),
		Title:               strings.TrimSpace(v[prefix+"title"]),
		Description:         strings.TrimSpace(v[prefix+"description"]),
		Probability:         *s.Probability,
		TimeHorizon:         horizon,
		RiskLevel:           risk,
		ImpactScore:         *s.ImpactScore,
		DataConfidence:      *s.DataConfidence,
		AssumptionStability: *s.AssumptionStability,
		ReasoningTrace:      strings.TrimSpace(v[prefix+"reasoning_trace"]),
	}, nil
}
