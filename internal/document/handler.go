package document

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/rizkipratama/tierdocs/internal/identity"
	"github.com/rizkipratama/tierdocs/internal/transport"
	"github.com/rizkipratama/tierdocs/pkg/logger"
)

// maxUploadBytes caps multipart uploads at 50 MiB.
const maxUploadBytes = 50 << 20

// ServiceAPI is the document surface the HTTP layer depends on.
type ServiceAPI interface {
	Upload(ctx context.Context, uploaderID int64, dto UploadDTO, content io.Reader) (*Document, error)
	ListAccessible(ctx context.Context, userID int64, filter ListFilter) ([]*Document, error)
	CanAccess(ctx context.Context, userID, documentID int64) (bool, error)
	View(ctx context.Context, userID, documentID int64) (*Document, error)
	Download(ctx context.Context, userID, documentID int64) (*DownloadResult, error)
	Delete(ctx context.Context, actorID, documentID int64) error
	AccessHistory(ctx context.Context, actorID, documentID int64) ([]*Access, error)
	MyAccessHistory(ctx context.Context, userID int64) ([]*Access, error)
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

// Upload accepts a multipart form with a "file" part and metadata fields.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	uploader, ok := identity.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	minTier, err := strconv.Atoi(r.FormValue("minimum_tier_level"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid minimum_tier_level")
		return
	}

	dto := UploadDTO{
		FileName:         header.Filename,
		ContentType:      header.Header.Get("Content-Type"),
		MinimumTierLevel: minTier,
		Category:         r.FormValue("category"),
		Description:      r.FormValue("description"),
		IsConfidential:   r.FormValue("is_confidential") == "true",
	}

	doc, err := h.Service.Upload(r.Context(), uploader.ID, dto, file)
	if err != nil {
		h.Logger.Warn("upload failed", "error", err, "uploader_id", uploader.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, doc)
}

// List returns the documents the authenticated user's tier clears.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	filter := ListFilter{
		Category: r.URL.Query().Get("category"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	docs, err := h.Service.ListAccessible(r.Context(), user.ID, filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, docs)
}

// View returns document metadata and records the view in the audit trail.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	documentID, err := h.documentID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, err := h.Service.View(r.Context(), user.ID, documentID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, doc)
}

// Download streams the document's bytes and records the download.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	documentID, err := h.documentID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	result, err := h.Service.Download(r.Context(), user.ID, documentID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	defer result.Content.Close()

	contentType := result.Document.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", result.Document.FileName))
	w.Header().Set("Content-Length", strconv.FormatInt(result.Document.FileSize, 10))

	if _, err := io.Copy(w, result.Content); err != nil {
		h.Logger.Error("download stream interrupted",
			"error", err, "document_id", documentID, "user_id", user.ID)
	}
}

// Delete soft-deletes a document.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	documentID, err := h.documentID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	if err := h.Service.Delete(r.Context(), actor.ID, documentID); err != nil {
		h.Logger.Warn("delete failed", "error", err, "actor_id", actor.ID, "document_id", documentID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// CanAccess answers the visibility question without touching the audit trail.
func (h *Handler) CanAccess(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	documentID, err := h.documentID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	allowed, err := h.Service.CanAccess(r.Context(), user.ID, documentID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]bool{"can_access": allowed})
}

// History returns a document's audit trail.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	documentID, err := h.documentID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	accesses, err := h.Service.AccessHistory(r.Context(), actor.ID, documentID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, accesses)
}

// MyHistory returns the authenticated user's own access records.
func (h *Handler) MyHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	accesses, err := h.Service.MyAccessHistory(r.Context(), user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, accesses)
}

func (h *Handler) documentID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "documentID"), 10, 64)
}
