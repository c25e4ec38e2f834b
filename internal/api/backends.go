package api

import (
	"net/http"

	"github.com/seantiz/warp/internal/kernels"
)

func (s *Server) handleListBackends(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.registry.List())
}

// kernelsResponse is the JSON response for GET /v1/kernels.
type kernelsResponse struct {
	Kernels   []string `json:"kernels"`
	MaxLength int      `json:"max_length"`
}

func (s *Server) handleListKernels(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, kernelsResponse{
		Kernels:   kernels.Names(),
		MaxLength: kernels.MaxLength,
	})
}
