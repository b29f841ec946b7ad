package handlers

import (
	"context"
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"contractadmin/config"
)

type contextKey string

const ConfigKey contextKey = "config"

// GetConfig extracts the application config from the request context,
// falling back to the built-in defaults.
func GetConfig(r *http.Request) *config.Config {
	if val, ok := r.Context().Value(ConfigKey).(*config.Config); ok && val != nil {
		return val
	}
	return config.Default()
}

// ConfigMiddleware stores cfg in the request context so handlers can read
// table, dialog and export settings.
func ConfigMiddleware(cfg *config.Config) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		ctx := context.WithValue(e.Request.Context(), ConfigKey, cfg)
		e.Request = e.Request.WithContext(ctx)
		return e.Next()
	}
}
