package accesscode

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/rizkipratama/tierdocs/internal/identity"
	"github.com/rizkipratama/tierdocs/internal/transport"
	"github.com/rizkipratama/tierdocs/pkg/logger"
)

// ServiceAPI is the access-code surface the HTTP layer depends on.
type ServiceAPI interface {
	Generate(ctx context.Context, issuerID int64, dto GenerateCodeDTO) (*AccessCode, error)
	ListIssued(ctx context.Context, issuerID int64) ([]IssuedCodeDTO, error)
	ListRedemptions(ctx context.Context, issuerID int64, code string) ([]*Redemption, error)
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

// Generate mints a code for a lower tier on behalf of the authenticated user.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	issuer, ok := identity.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var dto GenerateCodeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	code, err := h.Service.Generate(r.Context(), issuer.ID, dto)
	if err != nil {
		h.Logger.Warn("code generation failed", "error", err, "issuer_id", issuer.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, ToIssuedCodeDTO(code, code.CreatedAt))
}

// ListIssued returns the authenticated user's minted codes, newest first.
func (h *Handler) ListIssued(w http.ResponseWriter, r *http.Request) {
	issuer, ok := identity.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	codes, err := h.Service.ListIssued(r.Context(), issuer.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, codes)
}

// ListRedemptions returns the per-use admission records of one of the
// authenticated user's codes.
func (h *Handler) ListRedemptions(w http.ResponseWriter, r *http.Request) {
	issuer, ok := identity.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	code := chi.URLParam(r, "code")
	if code == "" {
		h.WriteError(w, http.StatusBadRequest, "missing code")
		return
	}

	redemptions, err := h.Service.ListRedemptions(r.Context(), issuer.ID, code)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, redemptions)
}
