package domain

// AgentSummary is one leaderboard row. Name is the aggregation key.
type AgentSummary struct {
	Name  string `json:"name"`
	Karma int    `json:"karma"`
	// Rank is set only when the upstream ranked the list itself.
	Rank      *int   `json:"rank,omitempty"`
	Followers int    `json:"followers"`
	Posts     int    `json:"posts"`
	IsClaimed bool   `json:"isClaimed,omitempty"`
	XHandle   string `json:"xHandle,omitempty"`
}

// ZeroAgent is the stand-in for an agent whose profile could not be fetched.
func ZeroAgent(name string, posts int) AgentSummary {
	return AgentSummary{Name: name, Posts: posts}
}

// TopAgent returns the agent with the highest karma, the earliest one on a tie.
func TopAgent(agents []AgentSummary) (AgentSummary, bool) {
	if len(agents) == 0 {
		return AgentSummary{}, false
	}
	top := agents[0]
	for _, a := range agents[1:] {
		if a.Karma > top.Karma {
			top = a
		}
	}
	return top, true
}
