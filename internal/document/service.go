package document

import (
	"context"
	"io"
	"log/slog"
	"time"

	errors "github.com/rizkipratama/tierdocs/internal"
	"github.com/rizkipratama/tierdocs/internal/identity"
	"github.com/rizkipratama/tierdocs/internal/storage"
)

// Service enforces the minimum-tier gate over the catalog and records every
// successful view and download in the audit trail.
type Service struct {
	repo      Repository
	accessLog AccessLogRepository
	users     identity.Repository
	blobs     storage.BlobStore
	logger    *slog.Logger
}

func NewService(repo Repository, accessLog AccessLogRepository, users identity.Repository, blobs storage.BlobStore, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		accessLog: accessLog,
		users:     users,
		blobs:     blobs,
		logger:    logger,
	}
}

// Upload stores the content bytes first and commits metadata only after the
// blob write succeeded, so a catalog row never points at bytes that were
// never stored. The uploader may not gate the document more loosely than
// their own tier.
func (s *Service) Upload(ctx context.Context, uploaderID int64, dto UploadDTO, content io.Reader) (*Document, error) {
	uploader, err := s.users.GetByID(ctx, uploaderID)
	if err != nil {
		return nil, identity.ErrNotFound
	}
	if !uploader.IsActive {
		return nil, errors.ErrUserInactive
	}

	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if dto.MinimumTierLevel < uploader.TierLevel {
		s.logger.Warn("upload denied: minimum tier above uploader",
			"uploader_id", uploaderID,
			"uploader_tier", uploader.TierLevel,
			"minimum_tier", dto.MinimumTierLevel)
		return nil, errors.ErrMinTierTooLoose
	}

	now := time.Now()
	key := storage.NewStorageKey(now)

	put, err := s.blobs.Put(ctx, key, content)
	if err != nil {
		s.logger.Error("blob store write failed", "error", err, "storage_key", key)
		return nil, errors.NewExternalError("failed to store document content", err)
	}

	doc := &Document{
		FileName:         dto.FileName,
		StorageKey:       key,
		FileHash:         put.Hash,
		FileSize:         put.Size,
		ContentType:      dto.ContentType,
		UploaderID:       uploaderID,
		MinimumTierLevel: dto.MinimumTierLevel,
		Category:         dto.Category,
		Description:      dto.Description,
		IsConfidential:   dto.IsConfidential,
		IsActive:         true,
		UploadedAt:       now,
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		s.logger.Error("failed to persist document metadata", "error", err, "storage_key", key)
		return nil, err
	}

	s.logger.Info("document uploaded",
		"document_id", doc.ID,
		"uploader_id", uploaderID,
		"minimum_tier", doc.MinimumTierLevel,
		"file_size", doc.FileSize)
	return doc, nil
}

// ListAccessible returns the active documents the user's tier clears,
// newest upload first. Pure read, nothing is audited.
func (s *Service) ListAccessible(ctx context.Context, userID int64, filter ListFilter) ([]*Document, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, identity.ErrNotFound
	}

	docs, err := s.repo.ListAccessible(ctx, user.TierLevel, filter)
	if err != nil {
		s.logger.Error("failed to list documents", "error", err, "user_id", userID)
		return nil, err
	}
	return docs, nil
}

// CanAccess reports whether the user clears the document's gate. A missing
// user, a missing document, and a soft-deleted document all answer false.
func (s *Service) CanAccess(ctx context.Context, userID, documentID int64) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if err == identity.ErrNotFound {
			return false, nil
		}
		return false, err
	}

	doc, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		if err == ErrNotFound {
			return false, nil
		}
		return false, err
	}

	return doc.VisibleTo(user.TierLevel), nil
}

// View returns document metadata and appends a view record to the audit
// trail. The audit write happens before the call is considered successful.
func (s *Service) View(ctx context.Context, userID, documentID int64) (*Document, error) {
	doc, err := s.authorize(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	if err := s.recordAccess(ctx, userID, documentID, AccessTypeView); err != nil {
		return nil, err
	}
	return doc, nil
}

// DownloadResult pairs the content stream with the metadata the transport
// layer needs to frame it. Callers own closing Content.
type DownloadResult struct {
	Document *Document
	Content  io.ReadCloser
}

// Download streams the document's bytes. The blob's existence is rechecked
// first so a metadata row orphaned by a crash surfaces as a missing file,
// not a broken stream.
func (s *Service) Download(ctx context.Context, userID, documentID int64) (*DownloadResult, error) {
	doc, err := s.authorize(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	exists, err := s.blobs.Exists(ctx, doc.StorageKey)
	if err != nil {
		s.logger.Error("blob store check failed", "error", err, "storage_key", doc.StorageKey)
		return nil, errors.NewExternalError("failed to reach document storage", err)
	}
	if !exists {
		s.logger.Error("document content missing from blob store",
			"document_id", documentID, "storage_key", doc.StorageKey)
		return nil, errors.ErrFileMissing
	}

	if err := s.recordAccess(ctx, userID, documentID, AccessTypeDownload); err != nil {
		return nil, err
	}

	content, err := s.blobs.Get(ctx, doc.StorageKey)
	if err != nil {
		s.logger.Error("blob store read failed", "error", err, "storage_key", doc.StorageKey)
		return nil, errors.NewExternalError("failed to read document content", err)
	}

	return &DownloadResult{Document: doc, Content: content}, nil
}

// Delete soft-deletes. Allowed for the original uploader, and for any actor
// whose tier clears the document's own gate. The row and its audit trail
// are kept.
func (s *Service) Delete(ctx context.Context, actorID, documentID int64) error {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return identity.ErrNotFound
	}

	doc, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if !doc.IsActive {
		return ErrNotFound
	}

	if actor.ID != doc.UploaderID && !actor.MeetsTier(doc.MinimumTierLevel) {
		s.logger.Warn("delete denied",
			"actor_id", actorID,
			"actor_tier", actor.TierLevel,
			"document_id", documentID,
			"minimum_tier", doc.MinimumTierLevel)
		return errors.ErrDocumentForbidden
	}

	if err := s.repo.SoftDelete(ctx, documentID); err != nil {
		s.logger.Error("failed to delete document", "error", err, "document_id", documentID)
		return err
	}

	s.logger.Info("document deleted", "document_id", documentID, "actor_id", actorID)
	return nil
}

// AccessHistory lists the audit records of one document. Only users who can
// themselves access the document, or its uploader, may read its trail.
func (s *Service) AccessHistory(ctx context.Context, actorID, documentID int64) ([]*Access, error) {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, identity.ErrNotFound
	}

	doc, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if actor.ID != doc.UploaderID && !actor.MeetsTier(doc.MinimumTierLevel) {
		return nil, errors.ErrDocumentForbidden
	}

	return s.accessLog.ListByDocument(ctx, documentID)
}

// MyAccessHistory lists the requesting user's own view and download records.
func (s *Service) MyAccessHistory(ctx context.Context, userID int64) ([]*Access, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, identity.ErrNotFound
	}
	return s.accessLog.ListByUser(ctx, userID)
}

func (s *Service) authorize(ctx context.Context, userID, documentID int64) (*Document, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, identity.ErrNotFound
	}
	if !user.IsActive {
		return nil, errors.ErrUserInactive
	}

	doc, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.IsActive {
		return nil, ErrNotFound
	}
	if !user.MeetsTier(doc.MinimumTierLevel) {
		s.logger.Warn("document access denied",
			"user_id", userID,
			"user_tier", user.TierLevel,
			"document_id", documentID,
			"minimum_tier", doc.MinimumTierLevel)
		return nil, errors.ErrDocumentForbidden
	}
	return doc, nil
}

func (s *Service) recordAccess(ctx context.Context, userID, documentID int64, accessType string) error {
	access := &Access{
		DocumentID: documentID,
		UserID:     userID,
		AccessType: accessType,
		AccessedAt: time.Now(),
	}
	if err := s.accessLog.Append(ctx, access); err != nil {
		s.logger.Error("failed to record document access",
			"error", err,
			"document_id", documentID,
			"user_id", userID,
			"access_type", accessType)
		return errors.NewInternalError("failed to record document access", err)
	}
	return nil
}
