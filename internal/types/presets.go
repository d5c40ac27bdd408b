package types

// Preset is a canned seed scenario offered at the INPUT stage.
type Preset struct {
	Label       string
	Icon        string
	Description string
}

var presets = []Preset{
	{
		Label:       "Crypto Crash",
		Icon:        "📉",
		Description: "Bitcoin crashes below $30k, triggering global regulatory crackdown.",
	},
	{
		Label:       "Pandemic 2.0",
		Icon:        "🦠",
		Description: "A new respiratory virus with high transmission rate is detected in major transit hubs.",
	},
	{
		Label:       "AI Ban",
		Icon:        "🤖",
		Description: "UN passes a resolution banning autonomous AI development above a certain compute threshold.",
	},
}

// Presets returns a copy of the fixed preset list.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}
