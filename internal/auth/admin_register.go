package auth

import (
	"context"

	"github.com/angelmondragon/agristore-backend/pkg/enums"
)

// AdminRegisterRequest contains the credentials for the dev-only admin registration flow.
type AdminRegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// AdminRegisterService creates accounts whose profile carries the admin role.
type AdminRegisterService interface {
	RegisterAdmin(ctx context.Context, req AdminRegisterRequest) (*LoginResponse, error)
}

// RegisterAdmin mirrors Register with the admin role stored on the profile.
func (s *service) RegisterAdmin(ctx context.Context, req AdminRegisterRequest) (*LoginResponse, error) {
	return s.register(ctx, req.Email, req.Password, enums.RoleAdmin)
}

// NewAdminRegisterService builds the admin registration flow. Routes expose it
// outside production only.
func NewAdminRegisterService(params ServiceParams) (AdminRegisterService, error) {
	return newService(params)
}
