// Package memory holds the in-memory reference implementation of the user
// and access-code stores. A single mutex covers both record sets, which is
// what makes the redeem-and-insert admission step atomic here.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "github.com/rizkipratama/tierdocs/internal"
	"github.com/rizkipratama/tierdocs/internal/accesscode"
	"github.com/rizkipratama/tierdocs/internal/identity"
)

type Store struct {
	mu sync.Mutex

	usersByID       map[int64]*identity.User
	usersByUsername map[string]*identity.User
	codesByString   map[string]*accesscode.AccessCode
	codesByID       map[int64]*accesscode.AccessCode
	redemptions     []*accesscode.Redemption

	nextUserID       int64
	nextCodeID       int64
	nextRedemptionID int64
}

func NewStore() *Store {
	return &Store{
		usersByID:        make(map[int64]*identity.User),
		usersByUsername:  make(map[string]*identity.User),
		codesByString:    make(map[string]*accesscode.AccessCode),
		codesByID:        make(map[int64]*accesscode.AccessCode),
		nextUserID:       1,
		nextCodeID:       1,
		nextRedemptionID: 1,
	}
}

// ---- auth.RegistrationStore ----

func (s *Store) HasUsers(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.usersByID) > 0, nil
}

func (s *Store) CreateRootUser(ctx context.Context, u *identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.usersByID) > 0 {
		return apperrors.ErrAccessCodeRequired
	}
	if _, exists := s.usersByUsername[u.Username]; exists {
		return apperrors.ErrDuplicateUsername
	}

	s.insertUserLocked(u)
	return nil
}

func (s *Store) CreateUserWithCode(ctx context.Context, u *identity.User, code string) (*accesscode.AccessCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.codesByString[code]
	if !exists || !c.Redeemable(time.Now()) {
		return nil, apperrors.ErrInvalidAccessCode
	}
	if _, taken := s.usersByUsername[u.Username]; taken {
		return nil, apperrors.ErrDuplicateUsername
	}

	u.TierLevel = c.TargetTierLevel
	u.Department = c.Department
	issuerID := c.IssuerID
	u.ParentUserID = &issuerID
	s.insertUserLocked(u)

	now := time.Now()
	c.CurrentUses++
	c.IsUsed = c.CurrentUses >= c.MaxUses
	userID := u.ID
	c.UsedByUserID = &userID
	c.UsedAt = &now

	s.redemptions = append(s.redemptions, &accesscode.Redemption{
		ID:           s.nextRedemptionID,
		AccessCodeID: c.ID,
		UserID:       u.ID,
		RedeemedAt:   now,
	})
	s.nextRedemptionID++

	snapshot := *c
	return &snapshot, nil
}

func (s *Store) insertUserLocked(u *identity.User) {
	u.ID = s.nextUserID
	s.nextUserID++
	copied := *u
	s.usersByID[copied.ID] = &copied
	s.usersByUsername[copied.Username] = &copied
}

// ---- identity.Repository ----

func (s *Store) GetByID(ctx context.Context, id int64) (*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.usersByID[id]
	if !exists {
		return nil, identity.ErrNotFound
	}
	snapshot := *u
	return &snapshot, nil
}

func (s *Store) GetByUsername(ctx context.Context, username string) (*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.usersByUsername[username]
	if !exists {
		return nil, identity.ErrNotFound
	}
	snapshot := *u
	return &snapshot, nil
}

func (s *Store) GetSubordinates(ctx context.Context, parentUserID int64) ([]*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*identity.User
	for _, u := range s.usersByID {
		if u.ParentUserID != nil && *u.ParentUserID == parentUserID && u.IsActive {
			snapshot := *u
			result = append(result, &snapshot)
		}
	}
	return result, nil
}

func (s *Store) GetFromTier(ctx context.Context, tierLevel int) ([]*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*identity.User
	for _, u := range s.usersByID {
		if u.TierLevel >= tierLevel && u.IsActive {
			snapshot := *u
			result = append(result, &snapshot)
		}
	}
	return result, nil
}

func (s *Store) Deactivate(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.usersByID[id]
	if !exists {
		return identity.ErrNotFound
	}
	u.IsActive = false
	u.UpdatedAt = time.Now()
	return nil
}

// ---- accesscode.Repository ----

func (s *Store) Create(ctx context.Context, code *accesscode.AccessCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.codesByString[code.Code]; exists {
		return accesscode.ErrCodeCollision
	}

	code.ID = s.nextCodeID
	s.nextCodeID++
	copied := *code
	s.codesByString[copied.Code] = &copied
	s.codesByID[copied.ID] = &copied
	return nil
}

func (s *Store) GetByCode(ctx context.Context, code string) (*accesscode.AccessCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.codesByString[code]
	if !exists {
		return nil, accesscode.ErrNotFound
	}
	snapshot := *c
	return &snapshot, nil
}

func (s *Store) ListByIssuer(ctx context.Context, issuerID int64) ([]*accesscode.AccessCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*accesscode.AccessCode
	for _, c := range s.codesByID {
		if c.IssuerID == issuerID {
			snapshot := *c
			result = append(result, &snapshot)
		}
	}
	// Newest first, same ordering as the database store.
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (s *Store) ListRedemptions(ctx context.Context, accessCodeID int64) ([]*accesscode.Redemption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*accesscode.Redemption
	for _, r := range s.redemptions {
		if r.AccessCodeID == accessCodeID {
			snapshot := *r
			result = append(result, &snapshot)
		}
	}
	return result, nil
}
