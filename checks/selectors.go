package checks

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SelectorProfile is a named, versioned list of CSS selectors identifying
// transient loading indicators. Embedding suites override or extend a profile
// instead of forking the check code.
type SelectorProfile struct {
	Name      string   `yaml:"name"`
	Version   int      `yaml:"version"`
	Selectors []string `yaml:"selectors"`
}

// DefaultLoadingSelectors returns the built-in profile
// "default-loading-selectors" v1: generic spinner/loader/progress selectors
// plus the spinner and progress classes of common component libraries.
func DefaultLoadingSelectors() SelectorProfile {
	return SelectorProfile{
		Name:    "default-loading-selectors",
		Version: 1,
		Selectors: []string{
			".spinner",
			".loader",
			".loading",
			`[role="progressbar"]`,
			// Bootstrap
			".spinner-border",
			".spinner-grow",
			// Material UI
			".MuiCircularProgress-root",
			".MuiLinearProgress-root",
			// Angular Material
			".mat-progress-spinner",
			".mat-progress-bar",
			// Ant Design
			".ant-spin",
			// Chakra UI
			".chakra-spinner",
		},
	}
}

// Extend returns a copy of the profile with extra selectors appended.
func (p SelectorProfile) Extend(extra ...string) SelectorProfile {
	out := p
	out.Selectors = append(append([]string{}, p.Selectors...), extra...)
	return out
}

// ParseProfile decodes a YAML selector profile.
func ParseProfile(data []byte) (SelectorProfile, error) {
	var p SelectorProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return SelectorProfile{}, fmt.Errorf("parse selector profile: %w", err)
	}
	if p.Name == "" {
		return SelectorProfile{}, errors.New("selector profile requires a name")
	}
	if len(p.Selectors) == 0 {
		return SelectorProfile{}, errors.New("selector profile requires at least one selector")
	}
	return p, nil
}

// LoadProfile reads a YAML selector profile from disk.
func LoadProfile(path string) (SelectorProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SelectorProfile{}, err
	}
	return ParseProfile(data)
}
