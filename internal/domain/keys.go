package domain

import "context"

type CtxKey string

const (
	KeyUserID    CtxKey = "UserID"
	KeyUserEmail CtxKey = "Email"
	KeyUserRole  CtxKey = "Role"
)

const (
	RoleClient = "client"
	// RoleOperator is used by support tooling acting on any client's wizard
	RoleOperator = "operator"
)

// OperatorContext marks ctx as coming from support tooling
func OperatorContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, KeyUserRole, RoleOperator)
}
