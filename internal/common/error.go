// Package common defines constants, sentinel errors and identifier helpers
// shared by the server and client. Callers should use errors.Is to match the
// error values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	ErrorPersistence   = errors.New("persistence failure")

	// Service-level errors.
	ErrorInternal                  = errors.New("internal error")
	ErrorInvalidCredentials        = errors.New("invalid credentials")
	ErrorAuthorizationInsufficient = errors.New("authorization insufficient")
	ErrorTenantMismatch            = errors.New("tenant mismatch")
	ErrorValidation                = errors.New("validation error")

	// Token lifecycle errors.
	ErrorInvalidToken     = errors.New("invalid token")
	ErrorTokenExpired     = fmt.Errorf("%w: token expired", ErrorInvalidToken)
	ErrorTokenMissing     = fmt.Errorf("%w: token not present", ErrorInvalidToken)
	ErrorTokenLifecycle   = errors.New("token lifecycle failure")
	ErrorTokenPersistence = errors.New("token persistence failure")

	// Validation errors; the text after the prefix is user-visible.
	ErrorLoginCodeEmpty     = fmt.Errorf("%w: login code empty", ErrorValidation)
	ErrorPasswordEmpty      = fmt.Errorf("%w: password empty", ErrorValidation)
	ErrorPasswordMismatch   = fmt.Errorf("%w: passwords do not match", ErrorValidation)
	ErrorPasswordTooLong    = fmt.Errorf("%w: password too long", ErrorValidation)
	ErrorNegativeAdminLevel = fmt.Errorf("%w: admin_level must not be negative", ErrorValidation)
)

// ValidationMessage returns the user-visible part of a validation error.
func ValidationMessage(err error) string {
	for _, v := range []error{ErrorLoginCodeEmpty, ErrorPasswordEmpty, ErrorPasswordMismatch, ErrorPasswordTooLong, ErrorNegativeAdminLevel} {
		if errors.Is(err, v) {
			return v.Error()[len(ErrorValidation.Error())+2:]
		}
	}
	return ErrorValidation.Error()
}

// AdminLevelError reports an attempt to grant a higher admin level than the
// requester holds.
type AdminLevelError struct {
	Have, Want int
}

func (e *AdminLevelError) Error() string {
	return fmt.Sprintf("user with level %d cannot create account with level %d", e.Have, e.Want)
}

func (e *AdminLevelError) Unwrap() error { return ErrorAuthorizationInsufficient }
