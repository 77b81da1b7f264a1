package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	domainauth "github.com/civicline/civicline-api/internal/domain/auth"
	"github.com/civicline/civicline-api/internal/domain/model"
	"github.com/civicline/civicline-api/internal/ports"
)

// UserAdminServiceOptions groups dependencies for UserAdminService.
type UserAdminServiceOptions struct {
	Accounts ports.AccountAdminStore // Required: account persistence
	Hasher   ports.PasswordHasher    // Required: hashing for staff passwords
	Logger   *slog.Logger            // Optional: structured logger
}

// UserAdminService implements the administrator account endpoints.
type UserAdminService struct {
	accounts ports.AccountAdminStore
	hasher   ports.PasswordHasher
	logger   *slog.Logger
}

// NewUserAdminService constructs a new UserAdminService.
func NewUserAdminService(opts UserAdminServiceOptions) (*UserAdminService, error) {
	if opts.Accounts == nil {
		return nil, errors.New("AccountAdminStore is required")
	}
	if opts.Hasher == nil {
		return nil, errors.New("PasswordHasher is required")
	}
	logger := slog.Default()
	if opts.Logger != nil {
		logger = opts.Logger
	}
	return &UserAdminService{
		accounts: opts.Accounts,
		hasher:   opts.Hasher,
		logger:   logger.With("component", "user_admin_service"),
	}, nil
}

// List returns one page of users.
func (s *UserAdminService) List(ctx context.Context, opts model.UserListOptions) ([]*model.User, error) {
	accs, err := s.accounts.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]*model.User, 0, len(accs))
	for _, a := range accs {
		users = append(users, model.UserFromAccount(a))
	}
	return users, nil
}

// Get returns one user.
func (s *UserAdminService) Get(ctx context.Context, id int64) (*model.User, error) {
	acc, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return model.UserFromAccount(acc), nil
}

// CreateStaff creates a staff or admin account.
func (s *UserAdminService) CreateStaff(ctx context.Context, actor domainauth.Snapshot, req model.CreateStaffRequest) (*model.User, error) {
	if actor.Role != domainauth.RoleAdmin {
		return nil, domainauth.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	id, err := s.accounts.Insert(ctx, domainauth.NewAccount{
		FullName:     req.FullName,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		DepartmentID: req.DepartmentID,
	})
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	s.logger.InfoContext(ctx, "staff account created", "user_id", id, "role", req.Role, "actor_id", actor.ID)
	return s.Get(ctx, id)
}

// Update changes a user's role, status or department. Administrators may
// not demote or deactivate themselves.
func (s *UserAdminService) Update(ctx context.Context, actor domainauth.Snapshot, id int64, req model.UpdateUserRequest) (*model.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Role != nil {
		if err := GuardRoleChange(actor, id, *req.Role); err != nil {
			return nil, err
		}
	}
	if req.Status != nil {
		if err := GuardStatusChange(actor, id, *req.Status); err != nil {
			return nil, err
		}
	}
	if actor.Role != domainauth.RoleAdmin {
		return nil, domainauth.ErrForbidden
	}
	if _, err := s.accounts.FindByID(ctx, id); err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := s.accounts.UpdateAccount(ctx, id, domainauth.AccountUpdate{
		Role:         req.Role,
		Status:       req.Status,
		DepartmentID: req.DepartmentID,
	}); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.InfoContext(ctx, "user updated", "user_id", id, "actor_id", actor.ID)
	return s.Get(ctx, id)
}
