package accesscode_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/rizkipratama/tierdocs/internal"
	"github.com/rizkipratama/tierdocs/internal/accesscode"
	"github.com/rizkipratama/tierdocs/internal/identity"
)

func TestAccessCodeService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "AccessCode Service Suite")
}

// Mock repositories for testing
type mockCodeRepository struct {
	codes       map[string]*accesscode.AccessCode
	redemptions map[int64][]*accesscode.Redemption
	createError error
	collisions  int
	nextID      int64
}

func newMockCodeRepository() *mockCodeRepository {
	return &mockCodeRepository{
		codes:       make(map[string]*accesscode.AccessCode),
		redemptions: make(map[int64][]*accesscode.Redemption),
		nextID:      1,
	}
}

func (m *mockCodeRepository) Create(ctx context.Context, code *accesscode.AccessCode) error {
	if m.createError != nil {
		return m.createError
	}
	if m.collisions > 0 {
		m.collisions--
		return accesscode.ErrCodeCollision
	}
	if _, exists := m.codes[code.Code]; exists {
		return accesscode.ErrCodeCollision
	}
	code.ID = m.nextID
	m.nextID++
	m.codes[code.Code] = code
	return nil
}

func (m *mockCodeRepository) GetByCode(ctx context.Context, code string) (*accesscode.AccessCode, error) {
	c, exists := m.codes[code]
	if !exists {
		return nil, accesscode.ErrNotFound
	}
	return c, nil
}

func (m *mockCodeRepository) ListByIssuer(ctx context.Context, issuerID int64) ([]*accesscode.AccessCode, error) {
	var result []*accesscode.AccessCode
	for _, c := range m.codes {
		if c.IssuerID == issuerID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *mockCodeRepository) ListRedemptions(ctx context.Context, accessCodeID int64) ([]*accesscode.Redemption, error) {
	return m.redemptions[accessCodeID], nil
}

type mockUserRepository struct {
	users map[int64]*identity.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[int64]*identity.User)}
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*identity.User, error) {
	u, exists := m.users[id]
	if !exists {
		return nil, identity.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*identity.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, identity.ErrNotFound
}

func (m *mockUserRepository) GetSubordinates(ctx context.Context, parentUserID int64) ([]*identity.User, error) {
	return nil, nil
}

func (m *mockUserRepository) GetFromTier(ctx context.Context, tierLevel int) ([]*identity.User, error) {
	return nil, nil
}

func (m *mockUserRepository) Deactivate(ctx context.Context, id int64) error {
	u, exists := m.users[id]
	if !exists {
		return identity.ErrNotFound
	}
	u.IsActive = false
	return nil
}

var _ = Describe("AccessCodeService", func() {
	var (
		repo    *mockCodeRepository
		users   *mockUserRepository
		service *accesscode.Service
		ctx     context.Context
	)

	testLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	policy := accesscode.Policy{
		DefaultExpiryDays: 30,
		MaxExpiryDays:     365,
		MaxUsesCap:        100,
	}

	addUser := func(id int64, tier int, active bool) *identity.User {
		u := &identity.User{
			ID:         id,
			Username:   "user",
			TierLevel:  tier,
			Department: "Engineering",
			IsActive:   active,
		}
		users.users[id] = u
		return u
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockCodeRepository()
		users = newMockUserRepository()
		service = accesscode.NewService(repo, users, policy, testLogger)
	})

	Describe("Generate", func() {
		Context("when a tier 2 issuer mints a tier 3 code", func() {
			It("should succeed and fill in defaults", func() {
				addUser(1, 2, true)

				code, err := service.Generate(ctx, 1, accesscode.GenerateCodeDTO{
					TargetTierLevel: 3,
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(code.Code).To(HaveLen(8))
				Expect(code.MaxUses).To(Equal(1))
				Expect(code.CurrentUses).To(Equal(0))
				Expect(code.Department).To(Equal("Engineering"))
				Expect(code.ExpiresAt).To(BeTemporally("~", time.Now().AddDate(0, 0, 30), time.Minute))
			})

			It("should honor explicit uses, expiry and department", func() {
				addUser(1, 2, true)

				code, err := service.Generate(ctx, 1, accesscode.GenerateCodeDTO{
					TargetTierLevel: 4,
					Department:      "Finance",
					MaxUses:         10,
					ExpiryDays:      7,
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(code.MaxUses).To(Equal(10))
				Expect(code.Department).To(Equal("Finance"))
				Expect(code.ExpiresAt).To(BeTemporally("~", time.Now().AddDate(0, 0, 7), time.Minute))
			})
		})

		Context("when the target tier equals the issuer's tier", func() {
			It("should reject with an insufficient tier error", func() {
				addUser(1, 2, true)

				_, err := service.Generate(ctx, 1, accesscode.GenerateCodeDTO{
					TargetTierLevel: 2,
				})
				Expect(err).To(MatchError(apperrors.ErrInsufficientTier))
			})
		})

		Context("when the target tier outranks the issuer", func() {
			It("should reject with an insufficient tier error", func() {
				addUser(1, 2, true)

				_, err := service.Generate(ctx, 1, accesscode.GenerateCodeDTO{
					TargetTierLevel: 1,
				})
				Expect(err).To(MatchError(apperrors.ErrInsufficientTier))
			})
		})

		Context("when max uses exceeds the cap", func() {
			It("should reject with a validation error", func() {
				addUser(1, 2, true)

				_, err := service.Generate(ctx, 1, accesscode.GenerateCodeDTO{
					TargetTierLevel: 3,
					MaxUses:         policy.MaxUsesCap + 1,
				})
				Expect(err).To(HaveOccurred())
				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(apperrors.ErrCodeInvalidMaxUses))
			})
		})

		Context("when the expiry exceeds the policy maximum", func() {
			It("should reject with a validation error", func() {
				addUser(1, 2, true)

				_, err := service.Generate(ctx, 1, accesscode.GenerateCodeDTO{
					TargetTierLevel: 3,
					ExpiryDays:      policy.MaxExpiryDays + 1,
				})
				Expect(err).To(HaveOccurred())
				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(apperrors.ErrCodeInvalidExpiry))
			})
		})

		Context("when the issuer is inactive", func() {
			It("should reject", func() {
				addUser(1, 2, false)

				_, err := service.Generate(ctx, 1, accesscode.GenerateCodeDTO{
					TargetTierLevel: 3,
				})
				Expect(err).To(MatchError(apperrors.ErrUserInactive))
			})
		})

		Context("when the issuer does not exist", func() {
			It("should reject with a not found error", func() {
				_, err := service.Generate(ctx, 99, accesscode.GenerateCodeDTO{
					TargetTierLevel: 3,
				})
				Expect(err).To(MatchError(identity.ErrNotFound))
			})
		})

		Context("when generated code strings collide", func() {
			It("should retry with a fresh code", func() {
				addUser(1, 2, true)
				repo.collisions = 2

				code, err := service.Generate(ctx, 1, accesscode.GenerateCodeDTO{
					TargetTierLevel: 3,
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(code.Code).To(HaveLen(8))
			})
		})

		Context("when the repository keeps failing", func() {
			It("should surface the error", func() {
				addUser(1, 2, true)
				repo.createError = errors.New("connection refused")

				_, err := service.Generate(ctx, 1, accesscode.GenerateCodeDTO{
					TargetTierLevel: 3,
				})
				Expect(err).To(MatchError("connection refused"))
			})
		})
	})

	Describe("ListIssued", func() {
		It("should derive the lifecycle state of each code", func() {
			addUser(1, 2, true)

			active := &accesscode.AccessCode{
				Code: "ACTIVE01", IssuerID: 1, TargetTierLevel: 3,
				MaxUses: 2, CurrentUses: 1,
				ExpiresAt: time.Now().Add(time.Hour),
			}
			exhausted := &accesscode.AccessCode{
				Code: "USEDUP01", IssuerID: 1, TargetTierLevel: 3,
				MaxUses: 1, CurrentUses: 1, IsUsed: true,
				ExpiresAt: time.Now().Add(time.Hour),
			}
			expired := &accesscode.AccessCode{
				Code: "EXPIRED1", IssuerID: 1, TargetTierLevel: 3,
				MaxUses: 1, CurrentUses: 0,
				ExpiresAt: time.Now().Add(-time.Hour),
			}
			for _, c := range []*accesscode.AccessCode{active, exhausted, expired} {
				Expect(repo.Create(ctx, c)).To(Succeed())
			}

			listed, err := service.ListIssued(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(listed).To(HaveLen(3))

			states := make(map[string]string, len(listed))
			for _, dto := range listed {
				states[dto.Code] = dto.State
			}
			Expect(states["ACTIVE01"]).To(Equal(accesscode.StateActive))
			Expect(states["USEDUP01"]).To(Equal(accesscode.StateExhausted))
			Expect(states["EXPIRED1"]).To(Equal(accesscode.StateExpired))
		})
	})

	Describe("ListRedemptions", func() {
		It("should only serve the code's issuer", func() {
			addUser(1, 2, true)
			addUser(2, 3, true)

			code := &accesscode.AccessCode{
				Code: "SHARED01", IssuerID: 1, TargetTierLevel: 3,
				MaxUses: 5, ExpiresAt: time.Now().Add(time.Hour),
			}
			Expect(repo.Create(ctx, code)).To(Succeed())
			repo.redemptions[code.ID] = []*accesscode.Redemption{
				{ID: 1, AccessCodeID: code.ID, UserID: 2, RedeemedAt: time.Now()},
			}

			redemptions, err := service.ListRedemptions(ctx, 1, "SHARED01")
			Expect(err).NotTo(HaveOccurred())
			Expect(redemptions).To(HaveLen(1))

			_, err = service.ListRedemptions(ctx, 2, "SHARED01")
			Expect(err).To(HaveOccurred())
		})
	})
})
