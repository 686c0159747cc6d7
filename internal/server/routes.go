package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Get("/health", s.health)

	// Protocol: inbound commands, outbound events
	r.Route("/command", func(r chi.Router) {
		r.Get("/", s.listCommands)
		r.Post("/", s.postCommand)
	})
	r.Get("/event", s.events)

	r.Get("/config", s.getConfig)
	r.Put("/provider/{providerKey}", s.switchProvider)

	r.Route("/auth", func(r chi.Router) {
		r.Put("/", s.setAuth)
		r.Delete("/", s.removeAuth)
	})

	r.Get("/history", s.getHistory)
}
