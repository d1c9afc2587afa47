package harness

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/kiln/internal/rules"
)

// Scenario is a sequence of builds over an evolving content tree.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules is the CUE rule set source.
	Rules string `yaml:"rules"`

	// Files is the initial content tree: identifier -> content.
	Files map[string]string `yaml:"files"`

	// Steps are the builds, run in order against the same project.
	Steps []Step `yaml:"steps"`
}

// Step edits the content tree and then builds.
type Step struct {
	Name string `yaml:"name"`

	// Write creates or replaces files before the build.
	Write map[string]string `yaml:"write,omitempty"`

	// Remove deletes files before the build.
	Remove []string `yaml:"remove,omitempty"`

	Expect Expect `yaml:"expect"`
}

// Expect describes the outcome of one build. Unset fields are not checked.
type Expect struct {
	// Executed is the exact execution order. An empty list means nothing ran.
	Executed *[]string `yaml:"executed,omitempty"`

	// Contains and Absent check membership without order.
	Contains []string `yaml:"contains,omitempty"`
	Absent   []string `yaml:"absent,omitempty"`

	// Waves is the expected wave count; 0 skips the check.
	Waves int `yaml:"waves,omitempty"`

	// Outputs maps a path under the output root to its expected content.
	Outputs map[string]string `yaml:"outputs,omitempty"`

	// Missing lists paths under the output root that must not exist.
	Missing []string `yaml:"missing,omitempty"`

	// Error is the expected runtime error code, or "BUILD" for any other
	// failure. Empty means the build must succeed.
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(p string) (*Scenario, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if strings.TrimSpace(s.Rules) == "" {
		return fmt.Errorf("rules is required")
	}
	if _, err := rules.Parse(s.Name+".cue", []byte(s.Rules)); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for name := range s.Files {
		if err := validPath(name); err != nil {
			return fmt.Errorf("files: %w", err)
		}
	}
	for i, st := range s.Steps {
		if st.Name == "" {
			return fmt.Errorf("steps[%d]: name is required", i)
		}
		for name := range st.Write {
			if err := validPath(name); err != nil {
				return fmt.Errorf("steps[%d].write: %w", i, err)
			}
		}
		for _, name := range st.Remove {
			if err := validPath(name); err != nil {
				return fmt.Errorf("steps[%d].remove: %w", i, err)
			}
		}
		for name := range st.Expect.Outputs {
			if err := validPath(name); err != nil {
				return fmt.Errorf("steps[%d].expect.outputs: %w", i, err)
			}
		}
	}
	return nil
}

// validPath accepts clean relative slash paths that stay inside the tree.
func validPath(p string) error {
	if p == "" || path.IsAbs(p) || path.Clean(p) != p || p == ".." || strings.HasPrefix(p, "../") {
		return fmt.Errorf("bad path %q", p)
	}
	return nil
}
