package openid

import (
	"strings"

	jwt "github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
)

// JwtHelper is a read-only view over the claims of an already-verified
// keycloak token. It never validates signatures; callers must have done
// that before building a helper.
type JwtHelper struct {
	claims       jwt.MapClaims
	realmRoles   []string
	accountRoles []string
	scopes       []string
}

func NewJwtHelper(claims jwt.MapClaims) *JwtHelper {
	return &JwtHelper{
		claims:       claims,
		realmRoles:   parseRealmRoles(claims),
		accountRoles: parseAccountRoles(claims),
		scopes:       parseScopes(claims),
	}
}

// FromToken builds a helper from a raw compact token without verifying it.
func FromToken(raw string) (*JwtHelper, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, errors.Wrap(err, "parse token claims")
	}
	return NewJwtHelper(claims), nil
}

// Subject returns the token's sub claim, the provider-side user id.
func (j *JwtHelper) Subject() string {
	if sub, ok := j.claims["sub"].(string); ok {
		return sub
	}
	return ""
}

func (j *JwtHelper) Username() string {
	if name, ok := j.claims["preferred_username"].(string); ok {
		return name
	}
	return ""
}

func (j *JwtHelper) Email() string {
	if email, ok := j.claims["email"].(string); ok {
		return email
	}
	return ""
}

func (j *JwtHelper) IsUserInRealmRole(role string) bool {
	return contains(j.realmRoles, role)
}

func (j *JwtHelper) TokenHasScope(scope string) bool {
	return contains(j.scopes, scope)
}

func parseRealmRoles(claims jwt.MapClaims) []string {
	realmRoles := make([]string, 0)

	if claim, ok := claims["realm_access"].(map[string]interface{}); ok {
		if roles, ok := claim["roles"].([]interface{}); ok {
			for _, role := range roles {
				if s, ok := role.(string); ok {
					realmRoles = append(realmRoles, s)
				}
			}
		}
	}

	return realmRoles
}

func parseAccountRoles(claims jwt.MapClaims) []string {
	var accountRoles []string

	if claim, ok := claims["resource_access"].(map[string]interface{}); ok {
		if acc, ok := claim["account"].(map[string]interface{}); ok {
			if roles, ok := acc["roles"].([]interface{}); ok {
				for _, role := range roles {
					if s, ok := role.(string); ok {
						accountRoles = append(accountRoles, s)
					}
				}
			}
		}
	}

	return accountRoles
}

func parseScopes(claims jwt.MapClaims) []string {
	scopeStr, ok := claims["scope"].(string)
	if !ok {
		return make([]string, 0)
	}
	return strings.Split(scopeStr, " ")
}

func contains(arr []string, s string) bool {
	for i := range arr {
		if arr[i] == s {
			return true
		}
	}

	return false
}
