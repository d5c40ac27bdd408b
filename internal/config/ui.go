package config

// ArchiveConfig configures the SQLite session archive.
type ArchiveConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// UIConfig configures the terminal interface.
type UIConfig struct {
	ShowReasoning bool   `yaml:"show_reasoning"`
	DarkMode      bool   `yaml:"dark_mode"`
	OutputDir     string `yaml:"output_dir"` // where reports and graphs are written
}
