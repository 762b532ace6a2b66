package booking

import (
	"context"

	"odysseum/internal/domain/auth"
	"odysseum/internal/domain/catalog"
)

// ServiceCatalog is the read side of the catalog the lifecycle depends on.
type ServiceCatalog interface {
	GetService(ctx context.Context, id int64) (*catalog.Service, error)
}

type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*auth.User, error)
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID int64
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == string(auth.RoleAdmin) }
