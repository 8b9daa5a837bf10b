package apiServer

import (
	"crypto/subtle"
	"errors"
	"net/http"
)

const authHeader = "X-Auth-Token"

var (
	ErrMissingToken = errors.New("missing " + authHeader + " header")
	ErrInvalidToken = errors.New("invalid auth token")

	ErrAdminDisabled = errors.New("airdrop and snapshot routes require an auth token")
)

// defaultAuth accepts every request. Transactions carry their own
// signatures; the admin routes stay disabled until WithAuth is used.
func defaultAuth(req *http.Request) error { // PHC
	return nil
}

// TokenAuth requires the X-Auth-Token header to equal token.
func TokenAuth(token string) AuthFunc { // A
	want := []byte(token)
	return func(req *http.Request) error {
		got := req.Header.Get(authHeader)
		if got == "" {
			return ErrMissingToken
		}
		if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			return ErrInvalidToken
		}
		return nil
	}
}
