package supervisor

// AgentProcesses returns one `agent <id>` child per id, in order, followed by
// the dashboard.
func AgentProcesses(ids []string) []Process {
	out := make([]Process, 0, len(ids)+1)
	for _, id := range ids {
		out = append(out, Process{Name: id + "_agent", Args: []string{"agent", id}})
	}
	return append(out, Process{Name: "dashboard", Args: []string{"dashboard"}})
}
