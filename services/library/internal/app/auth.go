package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"settle/internal/util"
	"settle/pkg/auth"
	"settle/pkg/domain"
	"settle/pkg/store"
)

// SignUpInput is the registration payload. An empty Role means user.
type SignUpInput struct {
	UserName string
	Email    string
	Password string
	Role     string
}

// Principal identifies the caller behind a verified token.
type Principal struct {
	UserID   int64
	UserName string
	Role     domain.UserRole
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp registers a user and returns it with a fresh token.
func (a *App) SignUp(ctx context.Context, in SignUpInput) (domain.User, string, error) {
	email := normalizeEmail(in.Email)
	userName := strings.TrimSpace(in.UserName)
	switch {
	case userName == "":
		return domain.User{}, "", invalid("userName", "is required")
	case email == "":
		return domain.User{}, "", invalid("email", "is required")
	case in.Password == "":
		return domain.User{}, "", invalid("password", "is required")
	}
	role := domain.RoleUser
	if strings.TrimSpace(in.Role) != "" {
		parsed, ok := domain.ParseUserRole(in.Role)
		if !ok {
			return domain.User{}, "", invalid("role", "must be USER or AUTHOR")
		}
		role = parsed
	}

	exists, err := a.store.HasUserEmail(ctx, email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, "", ErrEmailAlreadyExists
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return domain.User{}, "", invalid("password", "is too long")
		}
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		UserName:     userName,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := a.store.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return domain.User{}, "", ErrEmailAlreadyExists
		}
		return domain.User{}, "", fmt.Errorf("save user: %w", err)
	}
	token, err := a.GenerateToken(user)
	if err != nil {
		return domain.User{}, "", err
	}
	util.LoggerFromContext(ctx).Info("user_signed_up", "user_id", user.ID, "role", user.Role)
	return user.Public(), token, nil
}

// ValidateCredentials reports whether email and password identify a user.
// A missing user and a wrong password both yield false with no error.
func (a *App) ValidateCredentials(ctx context.Context, email, password string) (domain.User, bool, error) {
	user, _, matched, err := a.checkCredentials(ctx, email, password)
	if err != nil || !matched {
		return domain.User{}, false, err
	}
	return user, true, nil
}

// checkCredentials looks the user up by email and compares the password hash.
// The returned user has its hash stripped and is set only when matched.
func (a *App) checkCredentials(ctx context.Context, email, password string) (user domain.User, found, matched bool, err error) {
	stored, ok, err := a.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return domain.User{}, false, false, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, false, false, nil
	}
	if !auth.CheckPassword(password, stored.PasswordHash) {
		return domain.User{}, true, false, nil
	}
	return stored.Public(), true, true, nil
}

// Login validates credentials and issues a token. Unlike ValidateCredentials
// it tells a missing user (ErrUserNotFound) from a wrong password
// (ErrInvalidPassword).
func (a *App) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	if normalizeEmail(email) == "" || password == "" {
		return domain.User{}, "", invalid("email and password", "are required")
	}
	user, found, matched, err := a.checkCredentials(ctx, email, password)
	switch {
	case err != nil:
		return domain.User{}, "", err
	case !found:
		return domain.User{}, "", ErrUserNotFound
	case !matched:
		return domain.User{}, "", ErrInvalidPassword
	}
	token, err := a.GenerateToken(user)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// Profile returns the user with the given id.
func (a *App) Profile(ctx context.Context, userID int64) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user.Public(), nil
}

// GenerateToken signs a token carrying the user's id, name and role.
func (a *App) GenerateToken(user domain.User) (string, error) {
	token, err := a.tokens.Issue(user.ID, user.UserName, string(user.Role))
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// Authenticate verifies a bearer token and returns its principal.
func (a *App) Authenticate(token string) (Principal, error) {
	claims, err := a.tokens.Verify(token)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	userID, err := claims.UserID()
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	role, ok := domain.ParseUserRole(claims.Role)
	if !ok {
		return Principal{}, fmt.Errorf("%w: unknown role %q", ErrUnauthorized, claims.Role)
	}
	return Principal{UserID: userID, UserName: claims.Username, Role: role}, nil
}

// RequireRole returns ErrForbidden unless p holds role.
func RequireRole(p Principal, role domain.UserRole) error {
	if p.Role != role {
		return ErrForbidden
	}
	return nil
}
