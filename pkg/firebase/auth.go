// Package firebase implements the identity provider on Firebase
// Authentication.
package firebase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"github.com/angelmondragon/agristore-backend/pkg/backend"
	"github.com/angelmondragon/agristore-backend/pkg/config"
	"github.com/angelmondragon/agristore-backend/pkg/gcp"
	"github.com/angelmondragon/agristore-backend/pkg/logger"
)

// userAdmin is the slice of the Admin SDK auth client we depend on.
type userAdmin interface {
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// passwordVerifier signs a user in with email and password.
type passwordVerifier interface {
	VerifyPassword(ctx context.Context, email, password string) (backend.Identity, error)
}

type Auth struct {
	admin    userAdmin
	verifier passwordVerifier
	logg     *logger.Logger
}

func NewAuth(ctx context.Context, gcpCfg config.GCPConfig, fbCfg config.FirebaseConfig, logg *logger.Logger) (*Auth, error) {
	if fbCfg.WebAPIKey == "" {
		return nil, errors.New("firebase web api key is required for password sign-in")
	}

	app, err := fb.NewApp(ctx, &fb.Config{ProjectID: gcpCfg.ProjectID}, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("firebase app init failed: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth init failed: %w", err)
	}

	toolkit, err := identitytoolkit.NewService(ctx, option.WithAPIKey(fbCfg.WebAPIKey))
	if err != nil {
		return nil, fmt.Errorf("identity toolkit init failed: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "firebase auth initialized")
	}
	return &Auth{
		admin:    authClient,
		verifier: &toolkitVerifier{svc: toolkit},
		logg:     logg,
	}, nil
}

func (a *Auth) SignUp(ctx context.Context, email, password string) (backend.Identity, error) {
	params := (&auth.UserToCreate{}).Email(strings.TrimSpace(email)).Password(password)
	user, err := a.admin.CreateUser(ctx, params)
	if err != nil {
		return backend.Identity{}, backend.AuthFailure(err, signUpMessage(err))
	}
	return backend.Identity{UID: user.UID, Email: user.Email}, nil
}

func (a *Auth) SignIn(ctx context.Context, email, password string) (backend.Identity, error) {
	identity, err := a.verifier.VerifyPassword(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return backend.Identity{}, backend.AuthFailure(err, "sign in")
	}
	return identity, nil
}

// SignOut revokes the user's refresh tokens so other devices must sign in
// again.
func (a *Auth) SignOut(ctx context.Context, uid string) error {
	if err := a.admin.RevokeRefreshTokens(ctx, uid); err != nil {
		return backend.AuthFailure(err, "sign out")
	}
	return nil
}

func signUpMessage(err error) string {
	switch {
	case auth.IsEmailAlreadyExists(err):
		return "sign up: email already in use"
	case auth.IsUIDAlreadyExists(err):
		return "sign up: account already exists"
	default:
		return "sign up"
	}
}

type toolkitVerifier struct {
	svc *identitytoolkit.Service
}

func (t *toolkitVerifier) VerifyPassword(ctx context.Context, email, password string) (backend.Identity, error) {
	resp, err := t.svc.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return backend.Identity{}, err
	}
	if resp.LocalId == "" {
		return backend.Identity{}, errors.New("identity toolkit returned no user id")
	}
	return backend.Identity{UID: resp.LocalId, Email: resp.Email}, nil
}

var _ backend.Auth = (*Auth)(nil)
