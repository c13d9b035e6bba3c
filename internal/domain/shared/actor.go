package shared

// Actor identifies who requested a mutation. Only ID is required; the rest
// is request metadata copied into audit records.
type Actor struct {
	ID            string `json:"id"`
	IPAddress     string `json:"ip_address,omitempty"`
	UserAgent     string `json:"user_agent,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// SystemActor builds an actor for work the engine does on its own behalf.
func SystemActor(name string) Actor {
	return Actor{ID: "system:" + name}
}
