package api

import (
	"github.com/aretw0/introspection"
)

// ClientState exposes the client configuration and counters.
type ClientState struct {
	BackendURL string  `json:"backend_url"`
	MLURL      string  `json:"ml_url"`
	Timeout    string  `json:"timeout"`
	MaxRetries int     `json:"max_retries"`
	Summary    Summary `json:"summary"`
}

// State implements introspection.Introspectable.
func (c *Client) State() any {
	return ClientState{
		BackendURL: c.config.BackendURL,
		MLURL:      c.config.MLURL,
		Timeout:    c.config.Timeout.String(),
		MaxRetries: c.config.MaxRetries,
		Summary:    c.config.Metrics.Summary(),
	}
}

// ComponentType implements introspection.Component.
func (c *Client) ComponentType() string {
	return "api_client"
}

var _ introspection.Introspectable = (*Client)(nil)
var _ introspection.Component = (*Client)(nil)
