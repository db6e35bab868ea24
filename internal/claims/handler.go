package claims

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
	r.Post("/v1/claims/{userID}", h.updateClaims)
	r.Post("/v1/licenses/{userID}/deactivate", h.deactivate)
	r.Post("/v1/licenses/{userID}/activate", h.activate)
	r.Delete("/v1/licenses/{userID}", h.deleteLicense)
}

func (h *Handler) updateClaims(w http.ResponseWriter, r *http.Request) {
	caller, authed := middleware.IdentityFrom(r.Context())
	userID := chi.URLParam(r, "userID")
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil || len(patch) == 0 {
		problems.Write(w, problems.Err(problems.InvalidArgument, "claim patch required"))
		return
	}
	problems.Write(w, h.svc.UpdateClaims(r.Context(), caller, authed, userID, patch))
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	caller, authed := middleware.IdentityFrom(r.Context())
	problems.Write(w, h.svc.SetDisabled(r.Context(), caller, authed, chi.URLParam(r, "userID"), true))
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	caller, authed := middleware.IdentityFrom(r.Context())
	problems.Write(w, h.svc.SetDisabled(r.Context(), caller, authed, chi.URLParam(r, "userID"), false))
}

func (h *Handler) deleteLicense(w http.ResponseWriter, r *http.Request) {
	caller, authed := middleware.IdentityFrom(r.Context())
	problems.Write(w, h.svc.DeleteLicense(r.Context(), caller, authed, chi.URLParam(r, "userID")))
}
