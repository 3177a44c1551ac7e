package api

import (
	"bytes"
	"errors"
	"unsafe"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
)

var bearerPrefix = []byte("Bearer ")

// bearerTokenFromString extracts the compact JWT from an Authorization header
// value without copying. The returned slice aliases the header string and must
// be treated as read-only.
func bearerTokenFromString(raw string) ([]byte, error) {
	value := bytes.TrimSpace(readOnlyBytes(raw))
	if len(value) == 0 {
		return nil, errMissingAuthorization
	}
	if !bytes.HasPrefix(value, bearerPrefix) {
		return nil, errBadAuthorization
	}
	token := value[len(bearerPrefix):]
	if len(token) == 0 || bytes.Count(token, []byte{'.'}) != 2 {
		return nil, errBadAuthorization
	}
	return token, nil
}

func readOnlyBytes(s string) []byte {
	if s == "" {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func readOnlyString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}
