package protocol

const (
	// Authentication.
	ErrWrongPassword = "E_WRONG_PASSWORD"
	ErrServerError   = "E_SERVER_ERROR"

	// Transport/session state.
	ErrNotAuthenticated = "E_NOT_AUTHENTICATED"
	ErrBadRequest       = "E_BAD_REQUEST"
)

var knownCodes = map[string]struct{}{
	ErrWrongPassword:    {},
	ErrServerError:      {},
	ErrNotAuthenticated: {},
	ErrBadRequest:       {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
