package auth

import (
	"context"
	"errors"
	"strings"

	"go-reporting/internal/config"
	"go-reporting/internal/features/permission"
	"go-reporting/internal/features/user"
	"go-reporting/pkg/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountSuspended   = errors.New("account suspended")
	ErrUsernameTaken      = errors.New("username already taken")
)

type AuthService interface {
	Register(ctx context.Context, username, password, email, workspaceID string) (*user.User, error)
	Login(ctx context.Context, username, password string) (string, error)
}

type AuthServiceImpl struct {
	Users   user.UserRepository
	Members permission.MemberRepository
}

func NewAuthService(users user.UserRepository, members permission.MemberRepository, cfg *config.Config) AuthService {
	utils.SetSecret(cfg.JWTSecret)
	return &AuthServiceImpl{
		Users:   users,
		Members: members,
	}
}

// Register creates an account. When no workspace is given a fresh one is
// minted from the username and the registrant becomes its owner; joining
// an existing workspace grants the viewer role instead.
func (s *AuthServiceImpl) Register(ctx context.Context, username, password, email, workspaceID string) (*user.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}

	if _, err := s.Users.FindByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	}

	role := permission.RoleViewer
	if workspaceID == "" {
		workspaceID = utils.Slugify(username) + "-" + primitive.NewObjectID().Hex()[:4]
		role = permission.RoleOwner
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &user.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		WorkspaceID:  workspaceID,
		Roles:        []string{role},
		Status:       user.StatusActive,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, err
	}

	member := &permission.WorkspaceMember{
		UserID:      u.ID.Hex(),
		WorkspaceID: workspaceID,
		Role:        role,
		AddedBy:     u.ID.Hex(),
	}
	if err := s.Members.Upsert(ctx, member); err != nil {
		return nil, err
	}

	return u, nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.Users.FindByUsername(ctx, username)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	if u.Status == user.StatusSuspended {
		return "", ErrAccountSuspended
	}

	// Membership is the source of truth for the role carried in the token.
	roles := u.Roles
	if member, err := s.Members.Get(ctx, u.ID.Hex(), u.WorkspaceID); err == nil {
		roles = []string{member.Role}
	}

	return utils.GenerateToken(u.ID, u.WorkspaceID, roles)
}
