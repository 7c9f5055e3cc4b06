package session

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/agristore-backend/pkg/backend"
	"github.com/angelmondragon/agristore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/agristore-backend/pkg/errors"
	"github.com/angelmondragon/agristore-backend/pkg/models"
)

// Resolver derives a user's role from users/{uid}.
type Resolver struct {
	docs backend.DocumentStore
}

func NewResolver(docs backend.DocumentStore) (*Resolver, error) {
	if docs == nil {
		return nil, errors.New("document store required")
	}
	return &Resolver{docs: docs}, nil
}

// ResolveRole returns the stored role, or customer when the profile or its
// role field is absent. Lookup failures are returned as is.
func (r *Resolver) ResolveRole(ctx context.Context, uid string) (enums.Role, error) {
	if strings.TrimSpace(uid) == "" {
		return enums.RoleCustomer, nil
	}
	doc, found, err := r.docs.Get(ctx, models.UsersCollection, uid)
	if err != nil {
		return "", err
	}
	if !found {
		return enums.RoleCustomer, nil
	}
	profile, err := models.UserProfileFromDocument(*doc)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode user profile")
	}
	return profile.Role, nil
}
