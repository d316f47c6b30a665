package accesscode

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"time"

	errors "github.com/rizkipratama/tierdocs/internal"
	"github.com/rizkipratama/tierdocs/internal/identity"
)

// Policy carries the tunable issuance rules.
type Policy struct {
	DefaultExpiryDays int
	MaxExpiryDays     int
	MaxUsesCap        int
}

// Service mints and lists access codes on behalf of issuers.
type Service struct {
	repo   Repository
	users  identity.Repository
	policy Policy
	logger *slog.Logger
}

func NewService(repo Repository, users identity.Repository, policy Policy, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		policy: policy,
		logger: logger,
	}
}

const (
	codeLength         = 8
	codeGenMaxAttempts = 5

	// Crockford base32: no I, L, O, U, so codes survive being read aloud.
	codeAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
)

// Generate mints a new code. The target tier must rank strictly below the
// issuer's own tier; an issuer can never mint a code for their own or a
// higher tier.
func (s *Service) Generate(ctx context.Context, issuerID int64, dto GenerateCodeDTO) (*AccessCode, error) {
	issuer, err := s.users.GetByID(ctx, issuerID)
	if err != nil {
		s.logger.Error("code generation failed: issuer lookup", "error", err, "issuer_id", issuerID)
		return nil, identity.ErrNotFound
	}
	if !issuer.IsActive {
		return nil, errors.ErrUserInactive
	}

	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if dto.TargetTierLevel <= issuer.TierLevel {
		s.logger.Warn("code generation denied: target tier not below issuer",
			"issuer_id", issuerID,
			"issuer_tier", issuer.TierLevel,
			"target_tier", dto.TargetTierLevel)
		return nil, errors.ErrInsufficientTier
	}

	maxUses := dto.MaxUses
	if maxUses == 0 {
		maxUses = 1
	}
	if maxUses < 1 || maxUses > s.policy.MaxUsesCap {
		return nil, errors.NewValidationError(
			fmt.Sprintf("max uses must be between 1 and %d", s.policy.MaxUsesCap),
			errors.ErrCodeInvalidMaxUses)
	}

	expiryDays := dto.ExpiryDays
	if expiryDays == 0 {
		expiryDays = s.policy.DefaultExpiryDays
	}
	if expiryDays < 1 || expiryDays > s.policy.MaxExpiryDays {
		return nil, errors.NewValidationError(
			fmt.Sprintf("expiry must be between 1 and %d days", s.policy.MaxExpiryDays),
			errors.ErrCodeInvalidExpiry)
	}

	department := dto.Department
	if department == "" {
		department = issuer.Department
	}

	now := time.Now()
	code := &AccessCode{
		IssuerID:        issuerID,
		TargetTierLevel: dto.TargetTierLevel,
		Department:      department,
		MaxUses:         maxUses,
		CurrentUses:     0,
		IsUsed:          false,
		ExpiresAt:       now.AddDate(0, 0, expiryDays),
		CreatedAt:       now,
	}

	// The ledger rejects duplicate code strings, so a collision just means
	// we roll a fresh one.
	for attempt := 0; attempt < codeGenMaxAttempts; attempt++ {
		generated, err := generateCode()
		if err != nil {
			return nil, errors.NewInternalError("failed to generate access code", err)
		}
		code.Code = generated

		err = s.repo.Create(ctx, code)
		if err == nil {
			s.logger.Info("access code issued",
				"code_id", code.ID,
				"issuer_id", issuerID,
				"target_tier", code.TargetTierLevel,
				"max_uses", code.MaxUses,
				"expires_at", code.ExpiresAt)
			return code, nil
		}
		if err != ErrCodeCollision {
			s.logger.Error("failed to persist access code", "error", err, "issuer_id", issuerID)
			return nil, err
		}
	}

	return nil, errors.NewInternalError("could not generate a unique access code", ErrCodeCollision)
}

// ListIssued returns the issuer's minted codes with their derived state,
// newest first.
func (s *Service) ListIssued(ctx context.Context, issuerID int64) ([]IssuedCodeDTO, error) {
	if _, err := s.users.GetByID(ctx, issuerID); err != nil {
		return nil, identity.ErrNotFound
	}

	codes, err := s.repo.ListByIssuer(ctx, issuerID)
	if err != nil {
		s.logger.Error("failed to list issued codes", "error", err, "issuer_id", issuerID)
		return nil, err
	}

	now := time.Now()
	result := make([]IssuedCodeDTO, len(codes))
	for i, c := range codes {
		result[i] = ToIssuedCodeDTO(c, now)
	}
	return result, nil
}

// ListRedemptions returns the per-use admission records of one of the
// issuer's codes.
func (s *Service) ListRedemptions(ctx context.Context, issuerID int64, codeString string) ([]*Redemption, error) {
	code, err := s.repo.GetByCode(ctx, codeString)
	if err != nil {
		return nil, errors.ErrInvalidAccessCode
	}
	if code.IssuerID != issuerID {
		return nil, errors.NewForbiddenError("only the issuer can view a code's redemptions", errors.ErrCodeInsufficientTier)
	}
	return s.repo.ListRedemptions(ctx, code.ID)
}

func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
