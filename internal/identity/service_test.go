package identity_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/rizkipratama/tierdocs/internal"
	"github.com/rizkipratama/tierdocs/internal/identity"
)

func TestIdentityService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Identity Service Suite")
}

// Mock repository for testing
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
	var result []*identity.User
	for _, u := range m.users {
		if u.ParentUserID != nil && *u.ParentUserID == parentUserID && u.IsActive {
			result = append(result, u)
		}
	}
	return result, nil
}

func (m *mockUserRepository) GetFromTier(ctx context.Context, tierLevel int) ([]*identity.User, error) {
	var result []*identity.User
	for _, u := range m.users {
		if u.TierLevel >= tierLevel && u.IsActive {
			result = append(result, u)
		}
	}
	return result, nil
}

func (m *mockUserRepository) Deactivate(ctx context.Context, id int64) error {
	u, exists := m.users[id]
	if !exists {
		return identity.ErrNotFound
	}
	u.IsActive = false
	return nil
}

var _ = Describe("IdentityService", func() {
	var (
		repo    *mockUserRepository
		service *identity.Service
		ctx     context.Context
	)

	testLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	addUser := func(id int64, name string, tier int, parentID *int64) *identity.User {
		u := &identity.User{
			ID:        id,
			Username:  name,
			Name:      name,
			TierLevel: tier,
			ParentUserID: func() *int64 {
				if parentID == nil {
					return nil
				}
				p := *parentID
				return &p
			}(),
			IsActive: true,
		}
		repo.users[id] = u
		return u
	}

	idRef := func(id int64) *int64 { return &id }

	// root(1) → manager(2) → staffA(3), staffB(3); root(1) → lead(2)
	seedHierarchy := func() {
		addUser(1, "root", 1, nil)
		addUser(2, "manager", 2, idRef(1))
		addUser(3, "lead", 2, idRef(1))
		addUser(4, "staffA", 3, idRef(2))
		addUser(5, "staffB", 3, idRef(2))
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockUserRepository()
		service = identity.NewService(repo, 2, testLogger)
	})

	Describe("GetSubordinates", func() {
		It("should list only direct active reports, sorted", func() {
			seedHierarchy()
			repo.users[5].IsActive = false

			subordinates, err := service.GetSubordinates(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(subordinates).To(HaveLen(1))
			Expect(subordinates[0].Username).To(Equal("staffA"))
		})

		It("should order by tier then name", func() {
			seedHierarchy()

			subordinates, err := service.GetSubordinates(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(subordinates).To(HaveLen(2))
			Expect(subordinates[0].Username).To(Equal("lead"))
			Expect(subordinates[1].Username).To(Equal("manager"))
		})

		It("should reject an unknown requester", func() {
			_, err := service.GetSubordinates(ctx, 99)
			Expect(err).To(MatchError(identity.ErrNotFound))
		})
	})

	Describe("GetOrganizationTree", func() {
		Context("for a requester at the global-view tier", func() {
			It("should return the whole visible forest", func() {
				seedHierarchy()

				tree, err := service.GetOrganizationTree(ctx, 2)
				Expect(err).NotTo(HaveOccurred())

				// Tier 2 sees everyone at tier >= 2; manager and lead become
				// forest roots because tier 1 is outside the visible slice.
				Expect(tree).To(HaveLen(2))

				var manager *identity.OrgNode
				for _, root := range tree {
					if root.User.Username == "manager" {
						manager = root
					}
				}
				Expect(manager).NotTo(BeNil())
				Expect(manager.Children).To(HaveLen(2))
				Expect(manager.Children[0].User.Username).To(Equal("staffA"))
				Expect(manager.Children[1].User.Username).To(Equal("staffB"))
			})

			It("should root the forest at the bootstrap user for tier 1", func() {
				seedHierarchy()

				tree, err := service.GetOrganizationTree(ctx, 1)
				Expect(err).NotTo(HaveOccurred())
				Expect(tree).To(HaveLen(1))
				Expect(tree[0].User.Username).To(Equal("root"))
				Expect(tree[0].Children).To(HaveLen(2))
			})
		})

		Context("for a requester below the global-view tier", func() {
			It("should return only the requester's own subtree", func() {
				seedHierarchy()
				addUser(6, "junior", 4, idRef(4))

				tree, err := service.GetOrganizationTree(ctx, 4)
				Expect(err).NotTo(HaveOccurred())
				Expect(tree).To(HaveLen(1))
				Expect(tree[0].User.Username).To(Equal("staffA"))
				Expect(tree[0].Children).To(HaveLen(1))
				Expect(tree[0].Children[0].User.Username).To(Equal("junior"))
			})
		})
	})

	Describe("DeactivateUser", func() {
		It("should allow a higher tier to deactivate a lower tier", func() {
			seedHierarchy()

			Expect(service.DeactivateUser(ctx, 1, 4)).To(Succeed())
			Expect(repo.users[4].IsActive).To(BeFalse())
		})

		It("should reject deactivating a peer", func() {
			seedHierarchy()

			err := service.DeactivateUser(ctx, 2, 3)
			Expect(err).To(HaveOccurred())
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeInsufficientTier))
		})

		It("should reject deactivating upward", func() {
			seedHierarchy()

			err := service.DeactivateUser(ctx, 4, 1)
			Expect(err).To(HaveOccurred())
		})

		It("should not cascade to subordinates", func() {
			seedHierarchy()

			Expect(service.DeactivateUser(ctx, 1, 2)).To(Succeed())
			Expect(repo.users[4].IsActive).To(BeTrue())
			Expect(repo.users[5].IsActive).To(BeTrue())
		})

		It("should reject an unknown target", func() {
			seedHierarchy()

			err := service.DeactivateUser(ctx, 1, 99)
			Expect(err).To(MatchError(identity.ErrNotFound))
		})
	})

	Describe("GetProfile", func() {
		It("should return the stored profile", func() {
			seedHierarchy()

			profile, err := service.GetProfile(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(profile.Username).To(Equal("manager"))
		})
	})
})
