package auth

import "strings"

const bearerScheme = "Bearer"

// ExtractBearer pulls the credential out of an Authorization header value.
// The header must be exactly "Bearer <token>" with a single space; any other
// shape, including an empty token, yields ok == false.
func ExtractBearer(header string) (token string, ok bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != bearerScheme || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
