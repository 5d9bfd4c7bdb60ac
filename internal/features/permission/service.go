package permission

import (
	"context"
	"errors"
)

type PermissionService interface {
	// HasCapability resolves a capability through the caller's workspace
	// membership. Non-members get nothing.
	HasCapability(ctx context.Context, userID, workspaceID, action string) (bool, error)
	AddMember(ctx context.Context, member *WorkspaceMember) error
	ListMembers(ctx context.Context, workspaceID string) ([]WorkspaceMember, error)
	RemoveMember(ctx context.Context, userID, workspaceID string) error
}

type PermissionServiceImpl struct {
	Repo MemberRepository
}

func NewPermissionService(repo MemberRepository) PermissionService {
	return &PermissionServiceImpl{Repo: repo}
}

func (s *PermissionServiceImpl) HasCapability(ctx context.Context, userID, workspaceID, action string) (bool, error) {
	member, err := s.Repo.Get(ctx, userID, workspaceID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return false, nil
		}
		return false, err
	}
	return RoleGrants(member.Role, action), nil
}

func (s *PermissionServiceImpl) AddMember(ctx context.Context, member *WorkspaceMember) error {
	if member.UserID == "" || member.WorkspaceID == "" {
		return errors.New("user id and workspace id are required")
	}
	if !ValidRole(member.Role) {
		return errors.New("unknown role: " + member.Role)
	}
	return s.Repo.Upsert(ctx, member)
}

func (s *PermissionServiceImpl) ListMembers(ctx context.Context, workspaceID string) ([]WorkspaceMember, error) {
	return s.Repo.ListByWorkspace(ctx, workspaceID)
}

func (s *PermissionServiceImpl) RemoveMember(ctx context.Context, userID, workspaceID string) error {
	return s.Repo.Remove(ctx, userID, workspaceID)
}
