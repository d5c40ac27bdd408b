package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func councilJSON(n int) string {
	agents := make([]string, n)
	names := []string{"Vega", "Orion", "Kestrel", "Marlow"}
	for i := 0; i < n; i++ {
		agents[i] = fmt.Sprintf(`{"name":%q,"role":"Supply Chain Analyst","stance":"Risk-Averse","avatar":"🛰️"}`, names[i%len(names)])
	}
	return `{"agents":[` + strings.Join(agents, ",") + `]}`
}

func scenarioJSON(id, risk string) string {
	return fmt.Sprintf(`{"id":%q,"title":"Regulatory Freeze","description":"Exchanges halt withdrawals.",
		"probability":40,"time_horizon":"Short Term (0-6m)","risk_level":%q,"impact_score":8,
		"data_confidence":70,"assumption_stability":55,"reasoning_trace":"Liquidity spiral; rejected soft landing."}`, id, risk)
}

func simulationJSON(alert string, ids ...string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = scenarioJSON(id, "High")
	}
	alertField := ""
	if alert != "" {
		alertField = fmt.Sprintf(`,"black_swan_alert":%q`, alert)
	}
	return `{"scenarios":[` + strings.Join(parts, ",") + `],"synthesis":"The council splits on timing."` + alertField + `}`
}

// =============================================================================
// COUNCIL DECODING
// =============================================================================

func TestDecodeCouncil_ExactlyThree(t *testing.T) {
	c, err := DecodeCouncil([]byte(councilJSON(3)))
	require.NoError(t, err)
	require.Len(t, c.Agents, 3)
	assert.Equal(t, "Vega", c.Agents[0].Name)
	assert.Equal(t, "🛰️", c.Agents[0].Avatar)
}

func TestDecodeCouncil_WrongCountIsSchemaFailure(t *testing.T) {
	for _, n := range []int{0, 1, 2, 4} {
		t.Run(fmt.Sprintf("%d personas", n), func(t *testing.T) {
			_, err := DecodeCouncil([]byte(councilJSON(n)))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSchemaMismatch)
		})
	}
}

func TestDecodeCouncil_MissingField(t *testing.T) {
	raw := `{"agents":[{"name":"A","role":"r","stance":"s"},{"name":"B","role":"r","stance":"s","avatar":"x"},{"name":"C","role":"r","stance":"s","avatar":"x"}]}`
	_, err := DecodeCouncil([]byte(raw))

	var se *SchemaError
	require.True(t, errors.As(err, &se), "expected SchemaError, got %v", err)
	assert.Equal(t, "agents[0].avatar", se.Field)
	assert.Equal(t, "missing", se.Reason)
}

func TestDecodeCouncil_EmptyStance(t *testing.T) {
	raw := strings.Replace(councilJSON(3), `"stance":"Risk-Averse"`, `"stance":"  "`, 1)
	_, err := DecodeCouncil([]byte(raw))
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestDecodeCouncil_RejectsHonorifics(t *testing.T) {
	raw := strings.Replace(councilJSON(3), `"Vega"`, `"Dr. Vega"`, 1)
	_, err := DecodeCouncil([]byte(raw))
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestDecodeCouncil_RejectsMilitaryTitles(t *testing.T) {
	for _, name := range []string{"Gen. Vega", "Col.Vega", "Capt. Vega"} {
		raw := strings.Replace(councilJSON(3), `"Vega"`, `"`+name+`"`, 1)
		_, err := DecodeCouncil([]byte(raw))
		assert.ErrorIs(t, err, ErrSchemaMismatch, name)
	}
}

func TestDecodeCouncil_Malformed(t *testing.T) {
	_, err := DecodeCouncil([]byte(`{"agents": [`))
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.NotErrorIs(t, err, ErrSchemaMismatch)
}

func TestDecodeCouncil_WrongShape(t *testing.T) {
	_, err := DecodeCouncil([]byte(`{"agents":"three experts"}`))
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = DecodeCouncil([]byte(`{}`))
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestHasHonorific(t *testing.T) {
	cases := map[string]bool{
		"Dr. Elena Park":   true,
		"Prof Chen":        true,
		"Mrs. Hale":        true,
		"Sir Edmund":       true,
		"Drake Holloway":   false,
		"Cipher":           false,
		"Professor":        false,
		"Agent Mx-7":       false,
		"Elena Park":       false,
		"Reverend Mother":  false,
		"rev. Simon Blake": true,
		"Gen. Alvarez":     true,
		"Col. Reyes":       true,
		"Capt. Ito":        true,
		"Captain Ito":      true,
		"General Okafor":   true,
		"Colonel Mbeki":    true,
		"Dr.Chen":          true,
		"Prof.Ada Lin":     true,
		"Gen.":             false,
		"J.R. Cole":        false,
		"Genesis Park":     false,
	}
	for name, want := range cases {
		assert.Equal(t, want, HasHonorific(name), name)
	}
}

// =============================================================================
// SIMULATION DECODING
// =============================================================================

func TestDecodeSimulation_Valid(t *testing.T) {
	b, err := DecodeSimulation([]byte(simulationJSON("", "sc_1", "sc_2", "sc_3")))
	require.NoError(t, err)
	require.Len(t, b.Scenarios, 3)
	assert.Equal(t, "sc_2", b.Scenarios[1].ID)
	assert.Equal(t, RiskHigh, b.Scenarios[0].RiskLevel)
	assert.Equal(t, HorizonShort, b.Scenarios[0].TimeHorizon)
	assert.False(t, b.HasAlert())
}

func TestDecodeSimulation_BlackSwanStillThree(t *testing.T) {
	b, err := DecodeSimulation([]byte(simulationJSON("Solar storm wipes grid", "a", "b", "c")))
	require.NoError(t, err)
	assert.True(t, b.HasAlert())
	assert.Len(t, b.Scenarios, 3)

	_, err = DecodeSimulation([]byte(simulationJSON("Solar storm wipes grid", "a", "b")))
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestDecodeSimulation_NullAlert(t *testing.T) {
	raw := strings.TrimSuffix(simulationJSON("", "a", "b", "c"), "}") + `,"black_swan_alert":null}`
	b, err := DecodeSimulation([]byte(raw))
	require.NoError(t, err)
	assert.False(t, b.HasAlert())
}

func TestDecodeSimulation_WrongCount(t *testing.T) {
	for _, ids := range [][]string{{}, {"a"}, {"a", "b"}, {"a", "b", "c", "d"}} {
		_, err := DecodeSimulation([]byte(simulationJSON("", ids...)))
		assert.ErrorIs(t, err, ErrSchemaMismatch, "ids=%v", ids)
	}
}

func TestDecodeSimulation_DuplicateIDs(t *testing.T) {
	_, err := DecodeSimulation([]byte(simulationJSON("", "a", "a", "c")))
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestDecodeSimulation_OutOfRange(t *testing.T) {
	cases := []struct{ from, to string }{
		{`"probability":40`, `"probability":140`},
		{`"impact_score":8`, `"impact_score":0`},
		{`"data_confidence":70`, `"data_confidence":-1`},
		{`"assumption_stability":55`, `"assumption_stability":101`},
		{`"risk_level":"High"`, `"risk_level":"Apocalyptic"`},
		{`"time_horizon":"Short Term (0-6m)"`, `"time_horizon":"Yesterday"`},
	}
	for _, tc := range cases {
		raw := strings.Replace(simulationJSON("", "a", "b", "c"), tc.from, tc.to, 1)
		_, err := DecodeSimulation([]byte(raw))
		assert.ErrorIs(t, err, ErrSchemaMismatch, tc.to)
	}
}

func TestDecodeSimulation_MissingNumeric(t *testing.T) {
	raw := strings.Replace(simulationJSON("", "a", "b", "c"), `"impact_score":8,`, "", 1)
	_, err := DecodeSimulation([]byte(raw))

	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "scenarios[0].impact_score", se.Field)
}

func TestDecodeSimulation_MissingSynthesis(t *testing.T) {
	_, err := DecodeSimulation([]byte(`{"scenarios":[]}`))
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestDecodeSimulation_NormalizesLabels(t *testing.T) {
	raw := simulationJSON("", "a", "b", "c")
	raw = strings.Replace(raw, `"risk_level":"High"`, `"risk_level":"critical"`, 1)
	raw = strings.Replace(raw, `"time_horizon":"Short Term (0-6m)"`, `"time_horizon":"long term"`, 1)

	b, err := DecodeSimulation([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, RiskCritical, b.Scenarios[0].RiskLevel)
	assert.Equal(t, HorizonLong, b.Scenarios[0].TimeHorizon)
}

func TestDecodeSimulation_FloatForInt(t *testing.T) {
	raw := strings.Replace(simulationJSON("", "a", "b", "c"), `"probability":40`, `"probability":40.5`, 1)
	_, err := DecodeSimulation([]byte(raw))
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestScenarioJSONRoundTripKeepsWireNames(t *testing.T) {
	b, err := DecodeSimulation([]byte(simulationJSON("", "a", "b", "c")))
	require.NoError(t, err)

	out, err := json.Marshal(b.Scenarios[0])
	require.NoError(t, err)
	for _, key := range []string{"risk_level", "time_horizon", "impact_score", "data_confidence", "assumption_stability", "reasoning_trace"} {
		assert.Contains(t, string(out), `"`+key+`"`)
	}
}
