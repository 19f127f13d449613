// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/lectern-app/lectern/internal/config"
	"github.com/lectern-app/lectern/internal/infrastructure"
	"github.com/lectern-app/lectern/pkg/middleware"
	"github.com/lectern-app/lectern/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Infrastructure.Logger))

	return m, nil
}
