package google

import "errors"

// Error kinds returned by this package. Callers inspect them with errors.Is.
var (
	// ErrCredentialLoad means the service-account file is unreadable, not JSON,
	// or lacks client_email / private_key.
	ErrCredentialLoad = errors.New("credential load failed")

	// ErrSigning means the assertion could not be signed, usually because the
	// private key is not a valid RSA key.
	ErrSigning = errors.New("assertion signing failed")

	// ErrTokenExchange means the token endpoint call failed or returned no access token.
	ErrTokenExchange = errors.New("token exchange failed")
)
