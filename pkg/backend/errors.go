package backend

import (
	pkgerrors "github.com/angelmondragon/agristore-backend/pkg/errors"
)

// AuthFailure wraps an identity provider rejection.
func AuthFailure(err error, message string) error {
	return pkgerrors.Wrap(pkgerrors.CodeAuthFailure, err, message)
}

// WriteFailure wraps a rejected or failed document write.
func WriteFailure(err error, message string) error {
	return pkgerrors.Wrap(pkgerrors.CodeWriteFailure, err, message)
}

// UploadFailure wraps a failed blob upload or URL lookup.
func UploadFailure(err error, message string) error {
	return pkgerrors.Wrap(pkgerrors.CodeUploadFailure, err, message)
}

// ReadFailure wraps a failed document read. Absence is not a failure.
func ReadFailure(err error, message string) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
