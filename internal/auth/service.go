// Package auth signs storefront users up, in and out, and issues the API
// tokens that bind HTTP requests to a session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/agristore-backend/internal/session"
	pkgAuth "github.com/angelmondragon/agristore-backend/pkg/auth"
	authsession "github.com/angelmondragon/agristore-backend/pkg/auth/session"
	"github.com/angelmondragon/agristore-backend/pkg/backend"
	"github.com/angelmondragon/agristore-backend/pkg/config"
	"github.com/angelmondragon/agristore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/agristore-backend/pkg/errors"
	"github.com/angelmondragon/agristore-backend/pkg/logger"
	"github.com/angelmondragon/agristore-backend/pkg/models"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controllers.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Logout(ctx context.Context, userID, accessID string) error
	Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error)
}

type tokenSessions interface {
	Generate(ctx context.Context, accessID, userID, email string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (authsession.Rotation, error)
	Revoke(ctx context.Context, accessID string) error
}

type userSessions interface {
	SignIn(ctx context.Context, identity backend.Identity) (*session.Session, error)
	SignOut(ctx context.Context, uid string)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Auth      backend.Auth
	Documents backend.DocumentStore
	Tokens    tokenSessions
	Sessions  userSessions
	JWTConfig config.JWTConfig
	Logger    *logger.Logger
}

type service struct {
	auth     backend.Auth
	docs     backend.DocumentStore
	tokens   tokenSessions
	sessions userSessions
	jwtCfg   config.JWTConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	return newService(params)
}

func newService(params ServiceParams) (*service, error) {
	if params.Auth == nil {
		return nil, fmt.Errorf("identity provider is required")
	}
	if params.Documents == nil {
		return nil, fmt.Errorf("document store is required")
	}
	if params.Tokens == nil {
		return nil, fmt.Errorf("token session manager is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		auth:     params.Auth,
		docs:     params.Documents,
		tokens:   params.Tokens,
		sessions: params.Sessions,
		jwtCfg:   params.JWTConfig,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Register creates the account and its customer profile, then signs it in.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	return s.register(ctx, req.Email, req.Password, enums.RoleCustomer)
}

func (s *service) register(ctx context.Context, email, password string, role enums.Role) (*LoginResponse, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	identity, err := s.auth.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	profile := models.UserProfile{Email: identity.Email, Role: role}
	if err := s.docs.Set(ctx, models.UsersCollection, identity.UID, profile.Fields()); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithUserID(ctx, identity.UID), "account registered")
	return s.startSession(ctx, identity)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	identity, err := s.auth.SignIn(ctx, email, req.Password)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, identity)
}

func (s *service) startSession(ctx context.Context, identity backend.Identity) (*LoginResponse, error) {
	sess, err := s.sessions.SignIn(ctx, identity)
	if err != nil {
		return nil, err
	}

	accessID := authsession.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), pkgAuth.AccessTokenPayload{
		UserID: identity.UID,
		Email:  identity.Email,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.tokens.Generate(ctx, accessID, identity.UID, identity.Email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User: &UserDTO{
			ID:    identity.UID,
			Email: identity.Email,
			Role:  sess.Role(),
		},
	}, nil
}

// Logout revokes the refresh session, signs out of the identity provider and
// drops the in-process session. Every step runs; failures are combined.
func (s *service) Logout(ctx context.Context, userID, accessID string) error {
	if strings.TrimSpace(userID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	var errs error
	if strings.TrimSpace(accessID) != "" {
		if err := s.tokens.Revoke(ctx, accessID); err != nil {
			errs = multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session"))
		}
	}
	if err := s.auth.SignOut(ctx, userID); err != nil {
		errs = multierr.Append(errs, err)
	}
	s.sessions.SignOut(ctx, userID)
	if errs != nil {
		s.logg.Error(s.logg.WithUserID(ctx, userID), "logout completed with errors", errs)
	}
	return errs
}

func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, req.AccessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}
	rotation, err := s.tokens.Rotate(ctx, claims.ID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, authsession.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate refresh token")
	}
	if rotation.UserID != claims.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}

	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), pkgAuth.AccessTokenPayload{
		UserID: rotation.UserID,
		Email:  rotation.Email,
		JTI:    rotation.AccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &TokenResponse{AccessToken: accessToken, RefreshToken: rotation.RefreshToken}, nil
}
