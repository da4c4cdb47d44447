package erp

import "errors"

var (
	// ErrAuthFailed indicates the service credentials were rejected by the ERP.
	ErrAuthFailed = errors.New("erp: authentication failed")
	// ErrUnavailable indicates the ERP could not serve the request.
	ErrUnavailable = errors.New("erp: upstream unavailable")

	// errUnauthorized marks a rejected bearer token on an upstream call. It is
	// internal to the retry flow and never escapes the gateway.
	errUnauthorized = errors.New("erp: token rejected")
)
