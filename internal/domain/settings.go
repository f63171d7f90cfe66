package domain

// AISettings is the global AI configuration read from the settings store
// on every invocation. Settings can change between two calls of the same
// invocation and callers must tolerate that.
type AISettings struct {
	Enabled             bool   `json:"enabled"`
	EndpointURL         string `json:"endpoint_url"`
	APIKey              string `json:"api_key"`
	DefaultModel        string `json:"default_model,omitempty"`
	MaxConcurrentAgents int    `json:"max_concurrent_agents"`
}

// Model is one entry of the backend's model list.
type Model struct {
	ID      string `json:"id"`
	Created int64  `json:"created,omitempty"`
}
