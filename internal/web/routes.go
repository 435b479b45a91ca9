package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-matcher/internal/web/handlers"
	"github.com/kozaktomas/face-matcher/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	configHandler := handlers.NewConfigHandler(s.config, s.service)
	facesHandler := handlers.NewFacesHandler(s.service)
	registryHandler := handlers.NewRegistryHandler(s.service)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireToken(s.config.Web.APIToken))

		r.Get("/config", configHandler.Get)

		// Pipeline
		r.Post("/compare", facesHandler.Compare)
		r.Post("/detect", facesHandler.Detect)
		r.Post("/detect/all", facesHandler.DetectAll)
		r.Post("/align", facesHandler.Align)

		// Registry
		r.Get("/faces", registryHandler.List)
		r.Post("/faces", registryHandler.Register)
		r.Delete("/faces", registryHandler.Clear)
		r.Post("/faces/recognize", registryHandler.Recognize)
		r.Delete("/faces/{identity}", registryHandler.Delete)
	})
}
