package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pixelvault/pixelvault-backend/internal/users"
	"github.com/pixelvault/pixelvault-backend/pkg/authz"
	"github.com/pixelvault/pixelvault-backend/pkg/db/models"
	"github.com/pixelvault/pixelvault-backend/pkg/enums"
	pkgerrors "github.com/pixelvault/pixelvault-backend/pkg/errors"
	"github.com/pixelvault/pixelvault-backend/pkg/pagination"
)

type userStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, params pagination.Params) ([]models.User, error)
	UpdateRoleFrom(ctx context.Context, id uuid.UUID, expected, next enums.Role) (int64, error)
}

// ChangeRoleInput identifies the actor, the target, and the desired role.
type ChangeRoleInput struct {
	ActorID  uuid.UUID
	TargetID uuid.UUID
	NewRole  enums.Role
}

// ListUsersResult is one page of accounts plus the cursor for the next.
type ListUsersResult struct {
	Users      []users.UserDTO `json:"users"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// Service covers the admin-only account operations.
type Service interface {
	ListUsers(ctx context.Context, actorID uuid.UUID, params pagination.Params) (*ListUsersResult, error)
	ChangeRole(ctx context.Context, input ChangeRoleInput) (*users.UserDTO, error)
}

type service struct {
	users userStore
}

func NewService(store userStore) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("user store required")
	}
	return &service{users: store}, nil
}

func (s *service) ListUsers(ctx context.Context, actorID uuid.UUID, params pagination.Params) (*ListUsersResult, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(actor.Role, authz.OpListUsers); err != nil {
		return nil, err
	}

	rows, err := s.users.List(ctx, params)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}

	pageSize := pagination.NormalizeLimit(params.Limit)
	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	dtos := make([]users.UserDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *users.FromModel(&rows[i]))
	}
	return &ListUsersResult{Users: dtos, NextCursor: nextCursor}, nil
}

// ChangeRole transitions the target's role. The update is conditional on the
// role read here, so a concurrent change by another admin surfaces as a
// conflict instead of silently winning.
func (s *service) ChangeRole(ctx context.Context, input ChangeRoleInput) (*users.UserDTO, error) {
	actor, err := s.loadActor(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}

	target, err := s.users.FindByID(ctx, input.TargetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load target user")
	}

	if err := authz.ValidateRoleChange(authz.RoleChangeInput{
		ActorID:    actor.ID.String(),
		ActorRole:  actor.Role,
		TargetID:   target.ID.String(),
		TargetRole: target.Role,
		NewRole:    input.NewRole,
	}); err != nil {
		return nil, err
	}

	affected, err := s.users.UpdateRoleFrom(ctx, target.ID, target.Role, input.NewRole)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update role")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "user role changed concurrently, please retry")
	}

	updated, err := s.users.FindByID(ctx, target.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload user")
	}
	return users.FromModel(updated), nil
}

func (s *service) loadActor(ctx context.Context, actorID uuid.UUID) (*models.User, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor is required")
	}
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load actor")
	}
	if !actor.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is deactivated")
	}
	return actor, nil
}
