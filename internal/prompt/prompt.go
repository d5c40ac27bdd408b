// Package prompt builds the two model requests TIMEFOLD sends: council
// recruitment and scenario simulation. Builders are pure: they assemble
// prompt parts and attach the response schema the backend must honor.
package prompt

import (
	"fmt"
	"strings"

	"google.golang.org/genai"

	"timefold/internal/types"
)

// Kind identifies which schema a request expects back.
type Kind string

const (
	KindRecruitment Kind = "recruitment"
	KindSimulation  Kind = "simulation"
)

// Instruction lines shared with tests.
const (
	EngineIdentity     = "You are TIMEFOLD, an Advanced Strategic Foresight Engine."
	SimulationTask     = "TASK: Simulate a debate, generate 3 divergent future scenarios. Include reasoning traces and confidence metrics."
	ChaosInstruction   = "INJECT A BLACK SWAN EVENT: Introduce a low-probability, high-impact disruption into the scenarios."
	RecruitVisualHint  = "Analyze visual data."
	SimulateVisualHint = "Incorporate visual insights."
)

// Request is a fully assembled model request minus the optional image.
// Parts are sent in order; the image, when present, follows the first part.
type Request struct {
	Kind   Kind
	Parts  []string
	Schema *genai.Schema
}

// Text joins the parts, mostly for logging and tests.
func (r Request) Text() string {
	return strings.Join(r.Parts, "\n")
}

// BuildRecruitmentPrompt asks for exactly three diverse personas for context.
func BuildRecruitmentPrompt(context string, hasImage bool) Request {
	var sb strings.Builder
	fmt.Fprintf(&sb, "MISSION: Recruit %d distinct strategic experts to analyze: %s. ", types.CouncilSize, strings.TrimSpace(context))
	sb.WriteString("RULES: No honorifics. Diverse perspectives.\n")
	sb.WriteString("Names must not carry titles such as Dr., Prof., Mr. or Ms.; use plain or code names.\n")
	sb.WriteString("Each expert must hold a different strategic stance (e.g. Risk-Averse, Disruptive, Contrarian).")

	parts := []string{sb.String()}
	if hasImage {
		parts = append(parts, RecruitVisualHint)
	}
	return Request{Kind: KindRecruitment, Parts: parts, Schema: CouncilSchema()}
}

// BuildSimulationPrompt asks the council to debate the context into three
// divergent scenarios. injectChaos forces a black swan into the batch.
func BuildSimulationPrompt(context string, council types.Council, hasImage, injectChaos bool) Request {
	lines := make([]string, 0, len(council.Agents))
	for _, a := range council.Agents {
		lines = append(lines, fmt.Sprintf("- %s (%s): %s", a.Name, a.Role, a.Stance))
	}

	var sb strings.Builder
	sb.WriteString(EngineIdentity + "\n")
	sb.WriteString("ACTIVE COUNCIL:\n" + strings.Join(lines, "\n") + "\n")
	sb.WriteString(SimulationTask + "\n")
	if injectChaos {
		sb.WriteString(ChaosInstruction + "\n")
	}
	sb.WriteString("CURRENT STATE: " + strings.TrimSpace(context))

	parts := []string{sb.String()}
	if hasImage {
		parts = append(parts, SimulateVisualHint)
	}
	return Request{Kind: KindSimulation, Parts: parts, Schema: SimulationSchema()}
}
