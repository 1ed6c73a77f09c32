package session

import "github.com/golang-jwt/jwt/v5"

// groupsFromToken pulls the groups claim out of a JWT access token when the
// provider omitted user_info from the exchange response. The token is not
// verified here: the gateway treats the credential as opaque and only mines
// it for the optional claim; authorization decisions against the provider
// still ride on the token itself.
func groupsFromToken(token string) []string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}

	raw, ok := claims["groups"].([]any)
	if !ok {
		return nil
	}

	groups := make([]string, 0, len(raw))
	for _, entry := range raw {
		if s, ok := entry.(string); ok && s != "" {
			groups = append(groups, s)
		}
	}
	if len(groups) == 0 {
		return nil
	}
	return groups
}
