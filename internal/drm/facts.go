package drm

import (
	"encoding/json"
	"fmt"
	"os"
)

// Connector describes one display output entry in the ansible DRM
// facts file, e.g. {"name": "HDMI-1", "card": "card0"}.
type Connector struct {
	Name string `json:"name"`
	Card string `json:"card"`
}

// Facts is the parsed content of /etc/ansible/facts.d/drm.fact, a
// site-provisioning artifact listing the connectors this appliance is
// expected to have (spec.md §4.7).
type Facts struct {
	Connectors []Connector `json:"connectors"`
}

// LoadFacts reads and parses the DRM facts file at path.
func LoadFacts(path string) (*Facts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading drm facts %s: %w", path, err)
	}
	var facts Facts
	if err := json.Unmarshal(data, &facts); err != nil {
		return nil, fmt.Errorf("parsing drm facts %s: %w", path, err)
	}
	return &facts, nil
}

// ByName returns the Connector with the given name, if present.
func (f *Facts) ByName(name string) (Connector, bool) {
	for _, c := range f.Connectors {
		if c.Name == name {
			return c, true
		}
	}
	return Connector{}, false
}
