package rbac

import (
	"context"
	"fmt"
)

// Service is the access-control table consulted at the start of every
// mutating operation. Each component holds a reference and checks the role
// its operation requires; there is no ambient global state.
type Service struct {
	store Store
}

// NewService builds the role service on top of a grant store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Bootstrap grants GOVERNANCE to the configured admin identity so a fresh
// deployment has at least one principal able to assign roles. Called once at
// startup, before the service accepts traffic.
func (s *Service) Bootstrap(ctx context.Context, admin string) error {
	if admin == "" {
		return fmt.Errorf("admin identity is required")
	}
	return s.store.Put(ctx, Grant{Role: RoleGovernance, Identity: admin})
}

// Grant assigns a role to an identity. Only a GOVERNANCE holder may grant.
func (s *Service) Grant(ctx context.Context, actor string, grant Grant) error {
	if !grant.Role.Valid() {
		return fmt.Errorf("unknown role %q", grant.Role)
	}
	if err := s.requireGovernance(ctx, actor); err != nil {
		return err
	}
	return s.store.Put(ctx, grant)
}

// Revoke removes a role from an identity. Only a GOVERNANCE holder may revoke.
func (s *Service) Revoke(ctx context.Context, actor string, grant Grant) error {
	if err := s.requireGovernance(ctx, actor); err != nil {
		return err
	}
	return s.store.Delete(ctx, grant)
}

// Has reports whether the identity holds the role under the exact scope.
func (s *Service) Has(ctx context.Context, role Role, identity, scope string) (bool, error) {
	return s.store.Exists(ctx, Grant{Role: role, Identity: identity, Scope: scope})
}

// HasAny reports whether the identity holds the role under any scope.
func (s *Service) HasAny(ctx context.Context, role Role, identity string) (bool, error) {
	return s.store.ExistsAny(ctx, role, identity)
}

// Require fails with ErrUnauthorized unless the identity holds the role
// under the exact scope.
func (s *Service) Require(ctx context.Context, role Role, identity, scope string) error {
	ok, err := s.store.Exists(ctx, Grant{Role: role, Identity: identity, Scope: scope})
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

// RequireAny fails with ErrUnauthorized unless the identity holds the role
// under some scope.
func (s *Service) RequireAny(ctx context.Context, role Role, identity string) error {
	ok, err := s.store.ExistsAny(ctx, role, identity)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

// Holders lists the identities currently holding the role.
func (s *Service) Holders(ctx context.Context, role Role) ([]string, error) {
	return s.store.Holders(ctx, role)
}

func (s *Service) requireGovernance(ctx context.Context, actor string) error {
	ok, err := s.store.ExistsAny(ctx, RoleGovernance, actor)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}
