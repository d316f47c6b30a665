package postgres

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	apperrors "github.com/rizkipratama/tierdocs/internal"
	"github.com/rizkipratama/tierdocs/internal/accesscode"
	codestore "github.com/rizkipratama/tierdocs/internal/accesscode/postgres"
	"github.com/rizkipratama/tierdocs/internal/auth"
	codeDatamodel "github.com/rizkipratama/tierdocs/internal/core/datamodel/accesscode"
	"github.com/rizkipratama/tierdocs/internal/identity"
)

func TestRegistrationStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "RegistrationStore Suite")
}

// The tables are created with the same column sets and constraints as the
// goose migrations, not from shadow models, so a model field without a
// migrated column fails here instead of in production.
const migrationSchema = `
CREATE TABLE users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL,
    name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    department TEXT NOT NULL DEFAULT '',
    tier_level INTEGER NOT NULL CHECK (tier_level >= 1),
    parent_user_id INTEGER REFERENCES users (id),
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX one_root_user ON users ((parent_user_id IS NULL)) WHERE parent_user_id IS NULL;
CREATE TABLE access_codes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    code TEXT NOT NULL UNIQUE,
    issuer_id INTEGER NOT NULL REFERENCES users (id),
    target_tier_level INTEGER NOT NULL CHECK (target_tier_level >= 1),
    department TEXT NOT NULL DEFAULT '',
    max_uses INTEGER NOT NULL CHECK (max_uses >= 1),
    current_uses INTEGER NOT NULL DEFAULT 0 CHECK (current_uses <= max_uses),
    is_used BOOLEAN NOT NULL DEFAULT FALSE,
    expires_at TIMESTAMP NOT NULL,
    used_by_user_id INTEGER REFERENCES users (id),
    used_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE access_code_redemptions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    access_code_id INTEGER NOT NULL REFERENCES access_codes (id),
    user_id INTEGER NOT NULL REFERENCES users (id),
    redeemed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

var _ = Describe("RegistrationStore", func() {
	var (
		db       *gorm.DB
		store    auth.RegistrationStore
		codeRepo accesscode.Repository
		ctx      context.Context
	)

	newUser := func(username string, tier int) *identity.User {
		return &identity.User{
			Username:     username,
			Email:        username + "@example.com",
			Name:         username,
			PasswordHash: "hashed",
			Department:   "Engineering",
			TierLevel:    tier,
			IsActive:     true,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		Expect(db.Exec(migrationSchema).Error).NotTo(HaveOccurred())

		store = NewRegistrationStore(db)
		codeRepo = codestore.NewAccessCodeRepository(db)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	Describe("CreateRootUser", func() {
		It("should insert the bootstrap user and report its id", func() {
			root := newUser("root", 1)
			Expect(store.CreateRootUser(ctx, root)).To(Succeed())
			Expect(root.ID).NotTo(BeZero())

			hasUsers, err := store.HasUsers(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(hasUsers).To(BeTrue())
		})

		It("should refuse a second bootstrap once a root exists", func() {
			Expect(store.CreateRootUser(ctx, newUser("root", 1))).To(Succeed())

			err := store.CreateRootUser(ctx, newUser("latecomer", 1))
			Expect(err).To(MatchError(apperrors.ErrAccessCodeRequired))
		})

		It("should reject a second parentless row at the schema level", func() {
			Expect(store.CreateRootUser(ctx, newUser("root", 1))).To(Succeed())

			// The count recheck can miss a concurrent bootstrap; the partial
			// unique index cannot.
			err := db.Exec(
				`INSERT INTO users (username, email, name, password_hash, tier_level, parent_user_id)
				 VALUES ('rival', 'rival@example.com', 'rival', 'hashed', 1, NULL)`).Error
			Expect(err).To(HaveOccurred())
			Expect(isConstraintViolation(err, "one_root_user")).To(BeTrue())
			Expect(isConstraintViolation(err, "users_username_key")).To(BeFalse())
		})
	})

	Describe("access code persistence against the migrated columns", func() {
		var rootID int64

		BeforeEach(func() {
			root := newUser("root", 1)
			Expect(store.CreateRootUser(ctx, root)).To(Succeed())
			rootID = root.ID
		})

		It("should create and reload a code", func() {
			code := &accesscode.AccessCode{
				Code:            "ABCD2345",
				IssuerID:        rootID,
				TargetTierLevel: 2,
				Department:      "Engineering",
				MaxUses:         2,
				ExpiresAt:       time.Now().Add(24 * time.Hour),
				CreatedAt:       time.Now(),
			}
			Expect(codeRepo.Create(ctx, code)).To(Succeed())
			Expect(code.ID).NotTo(BeZero())

			stored, err := codeRepo.GetByCode(ctx, "ABCD2345")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.TargetTierLevel).To(Equal(2))
			Expect(stored.MaxUses).To(Equal(2))
		})

		It("should redeem a code, inherit its placement, and record the use", func() {
			code := &accesscode.AccessCode{
				Code:            "WXYZ6789",
				IssuerID:        rootID,
				TargetTierLevel: 3,
				Department:      "Support",
				MaxUses:         2,
				ExpiresAt:       time.Now().Add(24 * time.Hour),
				CreatedAt:       time.Now(),
			}
			Expect(codeRepo.Create(ctx, code)).To(Succeed())

			joiner := newUser("joiner", 0)
			redeemed, err := store.CreateUserWithCode(ctx, joiner, "WXYZ6789")
			Expect(err).NotTo(HaveOccurred())
			Expect(joiner.ID).NotTo(BeZero())
			Expect(joiner.TierLevel).To(Equal(3))
			Expect(joiner.Department).To(Equal("Support"))
			Expect(joiner.ParentUserID).To(HaveValue(Equal(rootID)))
			Expect(redeemed.CurrentUses).To(Equal(1))
			Expect(redeemed.IsUsed).To(BeFalse())

			redemptions, err := codeRepo.ListRedemptions(ctx, redeemed.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(redemptions).To(HaveLen(1))
			Expect(redemptions[0].UserID).To(Equal(joiner.ID))
		})

		It("should exhaust the code on its final use", func() {
			code := &accesscode.AccessCode{
				Code:            "LAST0001",
				IssuerID:        rootID,
				TargetTierLevel: 2,
				MaxUses:         1,
				ExpiresAt:       time.Now().Add(24 * time.Hour),
				CreatedAt:       time.Now(),
			}
			Expect(codeRepo.Create(ctx, code)).To(Succeed())

			_, err := store.CreateUserWithCode(ctx, newUser("first", 0), "LAST0001")
			Expect(err).NotTo(HaveOccurred())

			var dm codeDatamodel.AccessCode
			Expect(db.Where("code = ?", "LAST0001").First(&dm).Error).NotTo(HaveOccurred())
			Expect(dm.CurrentUses).To(Equal(1))
			Expect(dm.IsUsed).To(BeTrue())

			_, err = store.CreateUserWithCode(ctx, newUser("second", 0), "LAST0001")
			Expect(err).To(MatchError(apperrors.ErrInvalidAccessCode))
		})
	})
})
