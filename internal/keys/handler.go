package keys

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"meetsync/internal/authz"
	"meetsync/pkg/middleware"
	"meetsync/pkg/problems"
)

type Handler struct {
	svc   *Service
	authz *authz.Authorizer
	log   *zap.SugaredLogger
}

func NewHandler(svc *Service, az *authz.Authorizer, log *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, authz: az, log: log}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/invites", h.issueInvite)
	r.Post("/v1/invites/link", h.issueInviteLink)
	r.Post("/v1/invites/check", h.checkKey)
}

type issueInviteBody struct {
	InvitedEmail        string `json:"invitedEmail"`
	AccessLevel         int    `json:"accessLevel"`
	DefaultPermission   string `json:"defaultPermission"`
	ExpirationLimitHour int    `json:"expirationLimitHour"`
}

func (h *Handler) issueInvite(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		problems.Write(w, problems.Err(problems.Unauthenticated, "authentication required"))
		return
	}
	if !h.authz.AllowAdmin(r.Context(), caller, "") {
		problems.Write(w, problems.Err(problems.PermissionDenied, "admin claim required"))
		return
	}
	var b issueInviteBody
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		problems.Write(w, problems.Err(problems.InvalidArgument, "bad json"))
		return
	}
	if b.InvitedEmail == "" {
		problems.Write(w, problems.Err(problems.InvalidArgument, "invitedEmail required"))
		return
	}
	k, err := h.svc.Issue(r.Context(), Key{
		Kind:              KindInvitation,
		TenantID:          caller.TenantID,
		IssuedToUserID:    caller.Subject,
		InvitedEmail:      b.InvitedEmail,
		AccessLevel:       b.AccessLevel,
		DefaultPermission: b.DefaultPermission,
	}, b.ExpirationLimitHour)
	if err != nil {
		h.log.Errorw("issue invite", "err", err)
		problems.Write(w, problems.Err(problems.Internal, "issue failed"))
		return
	}
	problems.Write(w, problems.OK(map[string]any{"key": k.ID, "expiresAt": k.ExpiresAt}))
}

type issueLinkBody struct {
	AllowedDomain       string `json:"allowedDomain"`
	AccessLevel         int    `json:"accessLevel"`
	ExpirationLimitHour int    `json:"expirationLimitHour"`
}

func (h *Handler) issueInviteLink(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		problems.Write(w, problems.Err(problems.Unauthenticated, "authentication required"))
		return
	}
	if !h.authz.AllowAdmin(r.Context(), caller, "") {
		problems.Write(w, problems.Err(problems.PermissionDenied, "admin claim required"))
		return
	}
	var b issueLinkBody
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		problems.Write(w, problems.Err(problems.InvalidArgument, "bad json"))
		return
	}
	k, err := h.svc.Issue(r.Context(), Key{
		Kind:           KindInviteLink,
		TenantID:       caller.TenantID,
		IssuedToUserID: caller.Subject,
		AllowedDomain:  b.AllowedDomain,
		AccessLevel:    b.AccessLevel,
	}, b.ExpirationLimitHour)
	if err != nil {
		h.log.Errorw("issue invite link", "err", err)
		problems.Write(w, problems.Err(problems.Internal, "issue failed"))
		return
	}
	problems.Write(w, problems.OK(map[string]any{"key": k.ID, "expiresAt": k.ExpiresAt}))
}

type checkKeyBody struct {
	Key  string `json:"key"`
	Kind string `json:"kind"`
}

// checkKey is public: the invitee holds only the key, no identity yet.
func (h *Handler) checkKey(w http.ResponseWriter, r *http.Request) {
	var b checkKeyBody
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		problems.Write(w, problems.Err(problems.InvalidArgument, "bad json"))
		return
	}
	kind := Kind(b.Kind)
	if kind == "" {
		kind = KindInvitation
	}
	if kind != KindInvitation && kind != KindInviteLink {
		problems.Write(w, problems.Err(problems.InvalidArgument, "unknown kind"))
		return
	}
	_, res := h.svc.Verify(r.Context(), kind, b.Key)
	problems.Write(w, res)
}
