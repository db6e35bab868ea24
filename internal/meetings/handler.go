package meetings

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"meetsync/pkg/middleware"
	"meetsync/pkg/problems"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/meetings", h.create)
	r.Get("/v1/meetings", h.list)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		problems.Write(w, problems.Err(problems.Unauthenticated, "authentication required"))
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problems.Write(w, problems.Err(problems.InvalidArgument, "bad json"))
		return
	}
	problems.Write(w, h.svc.Create(r.Context(), caller, req))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		problems.Write(w, problems.Err(problems.Unauthenticated, "authentication required"))
		return
	}
	problems.Write(w, h.svc.List(r.Context(), caller))
}
