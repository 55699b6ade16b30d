// Package personas loads the embedded agent catalog.
package personas

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/startupx/agents/internal/agent/model"
)

//go:embed personas.yaml
var catalogYAML []byte

// Catalog is the set of personas keyed by id.
type Catalog struct {
	byID  map[string]model.Persona
	order []string
}

// Default parses the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(catalogYAML)
}

// MustDefault is Default for package-level wiring; the embedded file is
// covered by tests, so a failure here is a build defect.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse validates a YAML list of personas. Ids and ports must be unique.
func Parse(b []byte) (*Catalog, error) {
	var list []model.Persona
	if err := yaml.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("parse persona catalog: %w", err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("persona catalog is empty")
	}

	c := &Catalog{byID: make(map[string]model.Persona, len(list))}
	ports := make(map[int]string, len(list))
	for _, p := range list {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate persona id %q", p.ID)
		}
		if other, dup := ports[p.Port]; dup {
			return nil, fmt.Errorf("personas %q and %q share port %d", other, p.ID, p.Port)
		}
		if p.LogLabel == "" {
			p.LogLabel = p.Name
		}
		if p.DashboardName == "" {
			p.DashboardName = p.Name
		}
		ports[p.Port] = p.ID
		c.byID[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c, nil
}

// Get returns the persona with the given id.
func (c *Catalog) Get(id string) (model.Persona, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// All returns personas in catalog order.
func (c *Catalog) All() []model.Persona {
	out := make([]model.Persona, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// IDs returns the persona ids sorted alphabetically.
func (c *Catalog) IDs() []string {
	ids := append([]string(nil), c.order...)
	sort.Strings(ids)
	return ids
}
