package utils // package utils provides helper functions for token creation and hashing

import (
    "errors" // sentinel error values and errors.Is comparisons
    "time"   // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// Verification failure kinds.  Expiry is recoverable by logging in
// again; a malformed or tampered token never is, so callers must be
// able to tell the two apart.
var (
    // ErrTokenExpired is returned when the token was well formed and
    // correctly signed but its expiry has passed.
    ErrTokenExpired = errors.New("token expired")
    // ErrTokenMalformed is returned when the input is not a JWT at all.
    ErrTokenMalformed = errors.New("token malformed")
    // ErrTokenInvalid is returned for a bad signature, an unexpected
    // signing method or any other structural problem.
    ErrTokenInvalid = errors.New("token invalid")
)

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp as a time.Time.  Access tokens are short-lived and encoded
// in the Authorization header when calling protected endpoints.  There
// is no refresh or revocation mechanism: once a token expires the
// caller must authenticate again.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// TokenClaims is the identity carried by a verified access token.
type TokenClaims struct {
    Subject string   // account username (sub claim)
    Roles   []string // role names (roles claim)
}

// NewAccessToken builds and signs an HS256 JWT for an account.  It takes
// the signing secret, the subject username, the account's role set and a
// TTL.  The JWT includes standard claims: subject (sub), roles, expiration
// (exp) and issued at (iat).  A TTL of zero produces a token that is
// already expired on first verification.
func NewAccessToken(secret, subject string, roles []string, ttl time.Duration) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := jwt.MapClaims{
        "sub":   subject,
        "roles": roles,
        "exp":   exp.Unix(),
        "iat":   now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies a raw JWT against the signing secret and
// extracts its claims.  The signature comparison inside the JWT library
// uses hmac.Equal, so verification does not leak timing information.
// Returned errors wrap exactly one of ErrTokenExpired, ErrTokenMalformed
// or ErrTokenInvalid.
func ParseAccessToken(secret, raw string) (TokenClaims, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        // Reject any signing method other than HMAC; accepting the
        // token's own alg header would allow signature bypasses.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrTokenInvalid
        }
        return []byte(secret), nil
    })
    if err != nil {
        switch {
        case errors.Is(err, jwt.ErrTokenExpired):
            return TokenClaims{}, ErrTokenExpired
        case errors.Is(err, jwt.ErrTokenMalformed):
            return TokenClaims{}, ErrTokenMalformed
        default:
            return TokenClaims{}, ErrTokenInvalid
        }
    }
    if !tok.Valid {
        return TokenClaims{}, ErrTokenInvalid
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return TokenClaims{}, ErrTokenInvalid
    }
    sub, _ := claims["sub"].(string)
    if sub == "" {
        return TokenClaims{}, ErrTokenInvalid
    }
    return TokenClaims{Subject: sub, Roles: rolesFromClaim(claims["roles"])}, nil
}

// rolesFromClaim converts the decoded roles claim back into a string
// slice.  JSON unmarshalling yields []interface{}, so each element is
// asserted individually; anything unexpected is skipped.
func rolesFromClaim(v interface{}) []string {
    arr, ok := v.([]interface{})
    if !ok {
        return nil
    }
    roles := make([]string, 0, len(arr))
    for _, e := range arr {
        if s, ok := e.(string); ok && s != "" {
            roles = append(roles, s)
        }
    }
    return roles
}
