package dashboard

import (
	"fmt"
	"net"
	"strconv"

	"github.com/startupx/agents/internal/agent/model"
)

// Agent is one row of the dashboard's agent table.
type Agent struct {
	ID    string `json:"id"`
	Port  int    `json:"port"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// AgentsFrom builds the agent table from personas, keeping their order.
func AgentsFrom(ps []model.Persona) []Agent {
	out := make([]Agent, 0, len(ps))
	for _, p := range ps {
		name := p.DashboardName
		if name == "" {
			name = p.Name
		}
		out = append(out, Agent{ID: p.ID, Port: p.Port, Name: name, Color: p.Color})
	}
	return out
}

func (a Agent) addr(host string) string {
	return net.JoinHostPort(host, strconv.Itoa(a.Port))
}

func (a Agent) baseURL(host string) string {
	return fmt.Sprintf("http://%s", a.addr(host))
}
