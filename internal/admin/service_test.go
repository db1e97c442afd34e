package admin

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pixelvault/pixelvault-backend/pkg/db/models"
	"github.com/pixelvault/pixelvault-backend/pkg/enums"
	pkgerrors "github.com/pixelvault/pixelvault-backend/pkg/errors"
	"github.com/pixelvault/pixelvault-backend/pkg/pagination"
)

type memUsers struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*models.User
	races int
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uuid.UUID]*models.User{}}
}

func (m *memUsers) add(role enums.Role, active bool, createdAt time.Time) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.byID[id] = &models.User{
		ID:        id,
		Email:     id.String() + "@example.com",
		Role:      role,
		IsActive:  active,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	return id
}

func (m *memUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *user
	return &out, nil
}

func (m *memUsers) List(_ context.Context, params pagination.Params) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]models.User, 0, len(m.byID))
	for _, user := range m.byID {
		rows = append(rows, *user)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID.String() > rows[j].ID.String()
	})

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		filtered := rows[:0]
		for _, row := range rows {
			if row.CreatedAt.Before(cursor.CreatedAt) ||
				(row.CreatedAt.Equal(cursor.CreatedAt) && row.ID.String() < cursor.ID.String()) {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	limit := pagination.LimitWithBuffer(params.Limit)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *memUsers) UpdateRoleFrom(_ context.Context, id uuid.UUID, expected, next enums.Role) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.races > 0 {
		m.races--
		return 0, nil
	}
	user, ok := m.byID[id]
	if !ok || user.Role != expected {
		return 0, nil
	}
	user.Role = next
	return 1, nil
}

func newTestService(t *testing.T) (Service, *memUsers) {
	t.Helper()
	store := newMemUsers()
	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func TestListUsersRequiresAdmin(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	userID := store.add(enums.RoleUser, true, base)
	managerID := store.add(enums.RoleManager, true, base.Add(time.Minute))
	adminID := store.add(enums.RoleAdmin, true, base.Add(2*time.Minute))

	for _, actorID := range []uuid.UUID{userID, managerID} {
		_, err := svc.ListUsers(context.Background(), actorID, pagination.Params{})
		if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
			t.Fatalf("expected forbidden for non-admin, got %v", err)
		}
	}

	result, err := svc.ListUsers(context.Background(), adminID, pagination.Params{})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(result.Users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(result.Users))
	}
}

func TestListUsersPagination(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	adminID := store.add(enums.RoleAdmin, true, base.Add(time.Hour))
	for i := 0; i < 4; i++ {
		store.add(enums.RoleUser, true, base.Add(time.Duration(i)*time.Minute))
	}

	first, err := svc.ListUsers(context.Background(), adminID, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("ListUsers page 1: %v", err)
	}
	if len(first.Users) != 2 || first.NextCursor == "" {
		t.Fatalf("expected full first page with cursor, got %d users cursor=%q", len(first.Users), first.NextCursor)
	}

	second, err := svc.ListUsers(context.Background(), adminID, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	if err != nil {
		t.Fatalf("ListUsers page 2: %v", err)
	}
	if len(second.Users) != 2 {
		t.Fatalf("expected 2 users on second page, got %d", len(second.Users))
	}
	for _, earlier := range second.Users {
		for _, later := range first.Users {
			if earlier.ID == later.ID {
				t.Fatalf("user %s appeared on both pages", earlier.ID)
			}
		}
	}
}

func TestListUsersRejectsMalformedCursor(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t)
	adminID := store.add(enums.RoleAdmin, true, time.Now().UTC())

	_, err := svc.ListUsers(context.Background(), adminID, pagination.Params{Cursor: "not-base64!!"})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for malformed cursor, got %v", err)
	}
}

func TestChangeRolePromotesUser(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t)
	now := time.Now().UTC()
	adminID := store.add(enums.RoleAdmin, true, now)
	targetID := store.add(enums.RoleUser, true, now)

	updated, err := svc.ChangeRole(context.Background(), ChangeRoleInput{
		ActorID:  adminID,
		TargetID: targetID,
		NewRole:  enums.RoleManager,
	})
	if err != nil {
		t.Fatalf("ChangeRole: %v", err)
	}
	if updated.Role != enums.RoleManager {
		t.Fatalf("expected manager, got %q", updated.Role)
	}
}

func TestChangeRoleGuards(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t)
	now := time.Now().UTC()
	adminID := store.add(enums.RoleAdmin, true, now)
	otherAdminID := store.add(enums.RoleAdmin, true, now)
	managerID := store.add(enums.RoleManager, true, now)
	targetID := store.add(enums.RoleUser, true, now)

	cases := []struct {
		name  string
		input ChangeRoleInput
		code  pkgerrors.Code
	}{
		{"non-admin actor", ChangeRoleInput{ActorID: managerID, TargetID: targetID, NewRole: enums.RoleManager}, pkgerrors.CodeForbidden},
		{"self change", ChangeRoleInput{ActorID: adminID, TargetID: adminID, NewRole: enums.RoleUser}, pkgerrors.CodeForbidden},
		{"admin target", ChangeRoleInput{ActorID: adminID, TargetID: otherAdminID, NewRole: enums.RoleUser}, pkgerrors.CodeForbidden},
		{"invalid role", ChangeRoleInput{ActorID: adminID, TargetID: targetID, NewRole: enums.Role("owner")}, pkgerrors.CodeValidation},
		{"missing target", ChangeRoleInput{ActorID: adminID, TargetID: uuid.New(), NewRole: enums.RoleManager}, pkgerrors.CodeNotFound},
		{"unknown actor", ChangeRoleInput{ActorID: uuid.New(), TargetID: targetID, NewRole: enums.RoleManager}, pkgerrors.CodeUnauthorized},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.ChangeRole(context.Background(), tc.input)
			if err == nil || pkgerrors.As(err).Code() != tc.code {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestChangeRoleDeactivatedActor(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t)
	now := time.Now().UTC()
	adminID := store.add(enums.RoleAdmin, false, now)
	targetID := store.add(enums.RoleUser, true, now)

	_, err := svc.ChangeRole(context.Background(), ChangeRoleInput{
		ActorID:  adminID,
		TargetID: targetID,
		NewRole:  enums.RoleManager,
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestChangeRoleConflictOnRace(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t)
	now := time.Now().UTC()
	adminID := store.add(enums.RoleAdmin, true, now)
	targetID := store.add(enums.RoleUser, true, now)

	store.races = 1
	_, err := svc.ChangeRole(context.Background(), ChangeRoleInput{
		ActorID:  adminID,
		TargetID: targetID,
		NewRole:  enums.RoleManager,
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	// retry with the race resolved succeeds
	updated, err := svc.ChangeRole(context.Background(), ChangeRoleInput{
		ActorID:  adminID,
		TargetID: targetID,
		NewRole:  enums.RoleManager,
	})
	if err != nil {
		t.Fatalf("ChangeRole retry: %v", err)
	}
	if updated.Role != enums.RoleManager {
		t.Fatalf("expected manager after retry, got %q", updated.Role)
	}
}
