package authz

import (
	"fmt"

	"github.com/pixelvault/pixelvault-backend/pkg/enums"
	pkgerrors "github.com/pixelvault/pixelvault-backend/pkg/errors"
)

// Operation names a permission-gated action.
type Operation string

const (
	OpViewOwnData    Operation = "view_own_data"
	OpWriteProduct   Operation = "write_product"
	OpDeleteProduct  Operation = "delete_product"
	OpListUsers      Operation = "list_users"
	OpChangeUserRole Operation = "change_user_role"
)

// minRoleFor is the single decision table for role gating. Every gated
// handler and service funnels through it; there are no per-call-site rules.
var minRoleFor = map[Operation]enums.Role{
	OpViewOwnData:    enums.RoleUser,
	OpWriteProduct:   enums.RoleManager,
	OpDeleteProduct:  enums.RoleAdmin,
	OpListUsers:      enums.RoleAdmin,
	OpChangeUserRole: enums.RoleAdmin,
}

// Authorize checks whether actor may perform op. Unknown operations and
// unknown roles are both denied.
func Authorize(actor enums.Role, op Operation) error {
	min, ok := minRoleFor[op]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("unknown operation %q", op))
	}
	if !actor.AtLeast(min) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	return nil
}

// RoleChangeInput carries the state a role change must be validated against.
// Actor and target roles are the CURRENT stored values, not token snapshots.
type RoleChangeInput struct {
	ActorID    string
	ActorRole  enums.Role
	TargetID   string
	TargetRole enums.Role
	NewRole    enums.Role
}

// ValidateRoleChange enforces the guards around role mutation: only admins
// may change roles, never their own, never an admin target, and only to a
// known role.
func ValidateRoleChange(input RoleChangeInput) error {
	if err := Authorize(input.ActorRole, OpChangeUserRole); err != nil {
		return err
	}
	if !input.NewRole.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", input.NewRole))
	}
	if input.ActorID == input.TargetID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cannot change your own role")
	}
	if input.TargetRole == enums.RoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin roles cannot be changed")
	}
	return nil
}
