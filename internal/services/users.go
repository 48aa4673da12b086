package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"tally/internal/core"
	applog "tally/internal/log"
	"tally/internal/storage"
)

// Users handles registration, authentication and role management.
type Users struct {
	store *storage.Repository
	log   *applog.Logger
}

func NewUsers(store *storage.Repository, logger *applog.Logger) *Users {
	return &Users{
		store: store,
		log:   logger.WithComponent(applog.ComponentUsers),
	}
}

// Register creates an account with a bcrypt-hashed password. The very
// first account of a fresh database becomes an admin; everyone after
// starts as a regular user.
func (u *Users) Register(ctx context.Context, username, email, password string) (core.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" || email == "" || password == "" {
		return core.User{}, errors.New("username, email and password are required")
	}

	if _, err := u.store.GetUserByUsername(ctx, username); err == nil {
		return core.User{}, errors.New("username already taken")
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.User{}, err
	}
	if _, err := u.store.GetUserByEmail(ctx, email); err == nil {
		return core.User{}, errors.New("email already registered")
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	count, err := u.store.CountUsers(ctx)
	if err != nil {
		return core.User{}, err
	}
	role := core.RoleUser
	if count == 0 {
		role = core.RoleAdmin
	}

	id, err := u.store.CreateUser(ctx, core.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	u.log.InfoContext(ctx, "User registered",
		applog.FieldUserID, id,
		"role", string(role))
	return u.store.GetUserByID(ctx, id)
}

// Authenticate checks email and password. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (u *Users) Authenticate(ctx context.Context, email, password string) (core.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := u.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.User{}, core.ErrInvalidCredentials
		}
		return core.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return core.User{}, core.ErrInvalidCredentials
	}
	return user, nil
}

func (u *Users) Get(ctx context.Context, id int64) (core.User, error) {
	return u.store.GetUserByID(ctx, id)
}

// List returns all accounts, newest first (admin overview).
func (u *Users) List(ctx context.Context) ([]core.User, error) {
	return u.store.ListUsers(ctx)
}

// Promote grants admin to an account.
func (u *Users) Promote(ctx context.Context, id int64) error {
	if err := u.store.UpdateUserRole(ctx, id, core.RoleAdmin); err != nil {
		return err
	}
	u.log.InfoContext(ctx, "User promoted to admin", applog.FieldUserID, id)
	return nil
}

// Demote revokes admin from an account.
func (u *Users) Demote(ctx context.Context, id int64) error {
	if err := u.store.UpdateUserRole(ctx, id, core.RoleUser); err != nil {
		return err
	}
	u.log.InfoContext(ctx, "User demoted to regular user", applog.FieldUserID, id)
	return nil
}
