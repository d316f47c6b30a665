package identity

import (
	"context"
	"log/slog"
	"sort"

	errors "github.com/rizkipratama/tierdocs/internal"
)

// OrgNode is one user in the organization forest with its direct reports.
type OrgNode struct {
	User     *User      `json:"user"`
	Children []*OrgNode `json:"children"`
}

// Service answers organization queries over the user hierarchy.
type Service struct {
	repo           Repository
	globalViewTier int
	logger         *slog.Logger
}

// NewService creates an identity service. globalViewTier is the tier at or
// above which a requester sees the entire organization forest instead of
// only their own subtree.
func NewService(repo Repository, globalViewTier int, logger *slog.Logger) *Service {
	return &Service{
		repo:           repo,
		globalViewTier: globalViewTier,
		logger:         logger,
	}
}

// GetProfile returns the user's profile snapshot.
func (s *Service) GetProfile(ctx context.Context, userID int64) (*User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to get user profile", "error", err, "user_id", userID)
		return nil, ErrNotFound
	}
	return user, nil
}

// GetSubordinates lists the requester's direct, active reports ordered by
// tier then name.
func (s *Service) GetSubordinates(ctx context.Context, userID int64) ([]*User, error) {
	if _, err := s.repo.GetByID(ctx, userID); err != nil {
		return nil, ErrNotFound
	}

	subordinates, err := s.repo.GetSubordinates(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list subordinates", "error", err, "user_id", userID)
		return nil, err
	}

	sort.SliceStable(subordinates, func(i, j int) bool {
		if subordinates[i].TierLevel != subordinates[j].TierLevel {
			return subordinates[i].TierLevel < subordinates[j].TierLevel
		}
		return subordinates[i].Name < subordinates[j].Name
	})

	return subordinates, nil
}

// GetOrganizationTree assembles the requester's visible slice of the
// hierarchy: everyone at or below the requester's authority. Requesters at or
// above the global-view tier get the whole forest; everyone else gets the
// subtree rooted at themselves.
func (s *Service) GetOrganizationTree(ctx context.Context, userID int64) ([]*OrgNode, error) {
	requester, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrNotFound
	}

	users, err := s.repo.GetFromTier(ctx, requester.TierLevel)
	if err != nil {
		s.logger.Error("failed to load organization slice", "error", err, "user_id", userID)
		return nil, err
	}

	byParent := make(map[int64][]*User)
	byID := make(map[int64]*User, len(users))
	for _, u := range users {
		byID[u.ID] = u
		if u.ParentUserID != nil {
			byParent[*u.ParentUserID] = append(byParent[*u.ParentUserID], u)
		}
	}

	var build func(u *User) *OrgNode
	build = func(u *User) *OrgNode {
		node := &OrgNode{User: u, Children: []*OrgNode{}}
		children := byParent[u.ID]
		sort.SliceStable(children, func(i, j int) bool {
			if children[i].TierLevel != children[j].TierLevel {
				return children[i].TierLevel < children[j].TierLevel
			}
			return children[i].Name < children[j].Name
		})
		for _, c := range children {
			node.Children = append(node.Children, build(c))
		}
		return node
	}

	if requester.TierLevel <= s.globalViewTier {
		// Whole forest: roots are users whose parent is absent from the
		// visible slice (including the bootstrap user).
		var roots []*OrgNode
		for _, u := range users {
			if u.ParentUserID == nil {
				roots = append(roots, build(u))
				continue
			}
			if _, visible := byID[*u.ParentUserID]; !visible {
				roots = append(roots, build(u))
			}
		}
		sort.SliceStable(roots, func(i, j int) bool {
			return roots[i].User.TierLevel < roots[j].User.TierLevel
		})
		return roots, nil
	}

	return []*OrgNode{build(requester)}, nil
}

// DeactivateUser soft-deactivates the target. Only a strictly higher-tier
// actor may do so; deactivation does not cascade to subordinates or to the
// target's documents.
func (s *Service) DeactivateUser(ctx context.Context, actorID, targetID int64) error {
	actor, err := s.repo.GetByID(ctx, actorID)
	if err != nil {
		return ErrNotFound
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return ErrNotFound
	}

	if !actor.HasAuthorityOver(target) {
		s.logger.Warn("deactivation denied: target does not rank below actor",
			"actor_id", actorID,
			"actor_tier", actor.TierLevel,
			"target_id", targetID,
			"target_tier", target.TierLevel)
		return errors.NewForbiddenError("can only deactivate users below your own tier", errors.ErrCodeInsufficientTier)
	}

	if err := s.repo.Deactivate(ctx, targetID); err != nil {
		s.logger.Error("failed to deactivate user", "error", err, "target_id", targetID)
		return err
	}

	s.logger.Info("user deactivated",
		"actor_id", actorID,
		"target_id", targetID,
		"target_tier", target.TierLevel)

	return nil
}
