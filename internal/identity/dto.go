package identity

import "time"

// ProfileDTO is the outward-facing user snapshot. It never carries the
// credential hash.
type ProfileDTO struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Department   string    `json:"department"`
	TierLevel    int       `json:"tier_level"`
	ParentUserID *int64    `json:"parent_user_id,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

func ToProfileDTO(u *User) ProfileDTO {
	return ProfileDTO{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Name:         u.Name,
		Department:   u.Department,
		TierLevel:    u.TierLevel,
		ParentUserID: u.ParentUserID,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
	}
}

func ToProfileDTOSlice(users []*User) []ProfileDTO {
	result := make([]ProfileDTO, len(users))
	for i, u := range users {
		result[i] = ToProfileDTO(u)
	}
	return result
}

// OrgNodeDTO mirrors OrgNode with profile snapshots instead of full users.
type OrgNodeDTO struct {
	User     ProfileDTO   `json:"user"`
	Children []OrgNodeDTO `json:"children"`
}

func ToOrgNodeDTO(n *OrgNode) OrgNodeDTO {
	dto := OrgNodeDTO{
		User:     ToProfileDTO(n.User),
		Children: make([]OrgNodeDTO, 0, len(n.Children)),
	}
	for _, c := range n.Children {
		dto.Children = append(dto.Children, ToOrgNodeDTO(c))
	}
	return dto
}

func ToOrgNodeDTOSlice(nodes []*OrgNode) []OrgNodeDTO {
	result := make([]OrgNodeDTO, len(nodes))
	for i, n := range nodes {
		result[i] = ToOrgNodeDTO(n)
	}
	return result
}
