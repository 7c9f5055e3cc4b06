package backend

import (
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/agristore-backend/pkg/errors"
)

func TestJoinPath(t *testing.T) {
	require.Equal(t, "users/u1/cart", JoinPath("users", "u1", "cart"))
	require.Equal(t, "users/u1/cart", JoinPath("/users/", "", "u1/", "cart"))
	require.Equal(t, "", JoinPath())
}

func TestFailureKinds(t *testing.T) {
	cause := stdErrors.New("boom")

	require.True(t, pkgerrors.Is(AuthFailure(cause, "sign in"), pkgerrors.CodeAuthFailure))
	require.True(t, pkgerrors.Is(WriteFailure(cause, "set"), pkgerrors.CodeWriteFailure))
	require.True(t, pkgerrors.Is(UploadFailure(cause, "upload"), pkgerrors.CodeUploadFailure))
	require.True(t, pkgerrors.Is(ReadFailure(cause, "get"), pkgerrors.CodeDependency))
	require.ErrorIs(t, WriteFailure(cause, "set"), cause)
}
