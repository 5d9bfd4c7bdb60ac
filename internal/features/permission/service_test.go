package permission

import (
	"context"
	"testing"

	common_models "go-reporting/internal/common/models"
)

type fakeMemberRepo struct {
	members map[string]*WorkspaceMember
}

func memberKey(userID, workspaceID string) string { return userID + "/" + workspaceID }

func (f *fakeMemberRepo) Upsert(_ context.Context, m *WorkspaceMember) error {
	f.members[memberKey(m.UserID, m.WorkspaceID)] = m
	return nil
}

func (f *fakeMemberRepo) Get(_ context.Context, userID, workspaceID string) (*WorkspaceMember, error) {
	m, ok := f.members[memberKey(userID, workspaceID)]
	if !ok {
		return nil, ErrMemberNotFound
	}
	return m, nil
}

func (f *fakeMemberRepo) ListByWorkspace(context.Context, string) ([]WorkspaceMember, error) {
	return nil, nil
}
func (f *fakeMemberRepo) Remove(context.Context, string, string) error { return nil }
func (f *fakeMemberRepo) EnsureIndexes(context.Context) error          { return nil }

func TestHasCapability(t *testing.T) {
	repo := &fakeMemberRepo{members: map[string]*WorkspaceMember{}}
	svc := NewPermissionService(repo)
	ctx := context.Background()

	for user, role := range map[string]string{
		"u-viewer": RoleViewer,
		"u-editor": RoleEditor,
		"u-owner":  RoleOwner,
		"u-admin":  RoleAdmin,
	} {
		_ = svc.AddMember(ctx, &WorkspaceMember{UserID: user, WorkspaceID: "ws", Role: role})
	}

	cases := []struct {
		user   string
		action string
		want   bool
	}{
		{"u-viewer", common_models.CapabilityRead, true},
		{"u-viewer", common_models.CapabilityWrite, false},
		{"u-viewer", common_models.CapabilityDelete, false},
		{"u-editor", common_models.CapabilityWrite, true},
		{"u-editor", common_models.CapabilityDelete, false},
		{"u-owner", common_models.CapabilityDelete, true},
		{"u-owner", common_models.CapabilityManage, true},
		{"u-admin", common_models.CapabilityManage, true},
		{"u-stranger", common_models.CapabilityRead, false},
	}
	for _, tc := range cases {
		got, err := svc.HasCapability(ctx, tc.user, "ws", tc.action)
		if err != nil {
			t.Fatalf("%s/%s: %v", tc.user, tc.action, err)
		}
		if got != tc.want {
			t.Errorf("%s %s = %v, want %v", tc.user, tc.action, got, tc.want)
		}
	}
}

func TestAddMemberValidation(t *testing.T) {
	svc := NewPermissionService(&fakeMemberRepo{members: map[string]*WorkspaceMember{}})
	ctx := context.Background()

	if err := svc.AddMember(ctx, &WorkspaceMember{UserID: "u", WorkspaceID: "ws", Role: "superuser"}); err == nil {
		t.Fatal("unknown role accepted")
	}
	if err := svc.AddMember(ctx, &WorkspaceMember{WorkspaceID: "ws", Role: RoleViewer}); err == nil {
		t.Fatal("missing user id accepted")
	}
}
