package identity

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/rizkipratama/tierdocs/internal/transport"
	"github.com/rizkipratama/tierdocs/pkg/logger"
)

// ServiceAPI is the identity surface the HTTP layer depends on.
type ServiceAPI interface {
	GetProfile(ctx context.Context, userID int64) (*User, error)
	GetSubordinates(ctx context.Context, userID int64) ([]*User, error)
	GetOrganizationTree(ctx context.Context, userID int64) ([]*OrgNode, error)
	DeactivateUser(ctx context.Context, actorID, targetID int64) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// Me returns the authenticated user's own profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	profile, err := h.Service.GetProfile(r.Context(), user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToProfileDTO(profile))
}

// Subordinates lists the active users the requester's access codes admitted.
func (h *Handler) Subordinates(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	subordinates, err := h.Service.GetSubordinates(r.Context(), user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToProfileDTOSlice(subordinates))
}

// OrganizationTree returns the requester's visible slice of the hierarchy.
func (h *Handler) OrganizationTree(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	tree, err := h.Service.GetOrganizationTree(r.Context(), user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToOrgNodeDTOSlice(tree))
}

// Deactivate soft-disables a user ranked below the requester.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	actor, ok := UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	targetID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.Service.DeactivateUser(r.Context(), actor.ID, targetID); err != nil {
		h.Logger.Warn("deactivation failed", "error", err, "actor_id", actor.ID, "target_id", targetID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}
