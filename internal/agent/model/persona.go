package model

import "fmt"

// OutputMode selects how a persona's reply is post-processed and how its
// failures are reported.
type OutputMode string

const (
	// OutputJSON personas are prompted for a JSON document; code fences are
	// stripped from the reply and failures are reported as {"error": "..."}.
	OutputJSON OutputMode = "json"
	// OutputText personas reply in prose; failures are reported as "Error: ...".
	OutputText OutputMode = "text"
)

// Persona describes one agent process: its identity on the network, the
// port it listens on and the system prompt it wraps.
type Persona struct {
	ID            string              `yaml:"id" json:"id"`
	Name          string              `yaml:"name" json:"name"`
	Description   string              `yaml:"description" json:"description"`
	Capabilities  map[string][]string `yaml:"capabilities" json:"capabilities"`
	Port          int                 `yaml:"port" json:"port"`
	Output        OutputMode          `yaml:"output" json:"output"`
	Coordinator   bool                `yaml:"coordinator" json:"coordinator"`
	DashboardName string              `yaml:"dashboard_name" json:"dashboard_name"`
	Color         string              `yaml:"color" json:"color"`
	LogLabel      string              `yaml:"log_label" json:"-"`
	SystemPrompt  string              `yaml:"system_prompt" json:"-"`
}

// Validate reports the first missing or inconsistent field.
func (p Persona) Validate() error {
	switch {
	case p.ID == "":
		return fmt.Errorf("persona without id")
	case p.Name == "":
		return fmt.Errorf("persona %s: name is empty", p.ID)
	case p.Port <= 0 || p.Port > 65535:
		return fmt.Errorf("persona %s: invalid port %d", p.ID, p.Port)
	case p.Output != OutputJSON && p.Output != OutputText:
		return fmt.Errorf("persona %s: unknown output mode %q", p.ID, p.Output)
	case p.SystemPrompt == "":
		return fmt.Errorf("persona %s: system prompt is empty", p.ID)
	}
	return nil
}
