package identity

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrLicenseTaken       = errors.New("a doctor with this license number already exists")
	ErrAlreadyApplied     = errors.New("doctor application already submitted")
	ErrAlreadyVerified    = errors.New("doctor is already verified")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is deactivated")
	ErrForbidden          = errors.New("not authorized")
)
