package api

import (
	"net/http"

	"github.com/lectern-app/lectern/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
) {
	routes.Register(
		mux,
		domain.Jobs.Handler().Routes(),
	)
}
