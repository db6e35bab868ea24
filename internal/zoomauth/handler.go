package zoomauth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"meetsync/pkg/middleware"
	"meetsync/pkg/problems"
	"meetsync/pkg/tenants"
)

type Handler struct {
	svc     *Service
	tenants tenants.Provider
	log     *zap.SugaredLogger
}

func NewHandler(svc *Service, tp tenants.Provider, log *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, tenants: tp, log: log}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/zoom/authorize", h.authorize)
	r.Get("/zoom/oauth/callback", h.callback)
	r.Post("/internal/zoom/refresh", h.refresh)
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		problems.Write(w, problems.Err(problems.Unauthenticated, "authentication required"))
		return
	}
	appName := r.URL.Query().Get("app")
	u, err := h.svc.Authorize(r.Context(), caller.TenantID, caller.Subject, appName)
	if err != nil {
		h.log.Errorw("authorize", "err", err, "tenant", caller.TenantID)
		problems.Write(w, problems.Err(problems.Internal, "authorize failed"))
		return
	}
	http.Redirect(w, r, u, http.StatusFound)
}

// callback always redirects to the front end; the outcome rides in the
// zoomAuthResult query parameter.
func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	http.Redirect(w, r, h.svc.Callback(r.Context(), state, code), http.StatusFound)
}

// refresh is the scheduler trigger for the token sweep. It sits behind the
// internal route prefix, not end-user auth.
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Sweep(r.Context(), h.tenants)
	if err != nil {
		h.log.Errorw("refresh sweep", "err", err)
		problems.Write(w, problems.Err(problems.Internal, "sweep failed"))
		return
	}
	problems.Write(w, problems.OK(map[string]any{
		"refreshed": stats.Refreshed,
		"skipped":   stats.Skipped,
		"failed":    stats.Failed,
	}))
}
