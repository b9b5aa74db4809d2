package rbac

import "errors"

// Role is a capability grant restricting which operations an identity may invoke.
type Role string

const (
	// RoleBank authorizes account registration, minting and settlement
	// proposals. Bank grants are scoped to a bank identifier.
	RoleBank Role = "bank"
	// RoleOperator authorizes moving funds on behalf of another identity.
	// Held by the purchase processor and the settlement engine, never by
	// end users.
	RoleOperator Role = "operator"
	// RoleValidator authorizes attesting settlement requests.
	RoleValidator Role = "validator"
	// RoleGovernance authorizes granting and revoking roles.
	RoleGovernance Role = "governance"
	// RoleProvider authorizes managing catalog products.
	RoleProvider Role = "provider"
)

// ErrUnauthorized indicates the acting identity lacks the role an operation requires.
var ErrUnauthorized = errors.New("unauthorized")

// Valid reports whether the role is one of the known capability roles.
func (r Role) Valid() bool {
	switch r {
	case RoleBank, RoleOperator, RoleValidator, RoleGovernance, RoleProvider:
		return true
	default:
		return false
	}
}

// Grant is a single (role, identity, scope) row in the access-control table.
// Scope carries the bank identifier for bank grants and is empty otherwise.
type Grant struct {
	Role     Role
	Identity string
	Scope    string
}
