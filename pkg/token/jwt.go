package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// DefaultExpiration is used when Generate receives a non-positive ttl.
const DefaultExpiration = 24 * time.Hour

var (
	ErrFormat    = errors.New("invalid token format")
	ErrSignature = errors.New("invalid token signature")
	ErrExpired   = errors.New("token expired")
)

// Claims is the identity asserted by an access token. The json names are shared with the other
// tools producing and reading these tokens, do not rename them.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`

	jwt.RegisteredClaims
}

type Engine interface {
	// Generate stamps iat and exp on a copy of claims and signs it with HS256.
	Generate(claims Claims, ttl time.Duration) (string, error)

	// Verify checks the token structure, then its signature, then its expiration.
	Verify(token string) (*Claims, error)
}

type jwtEngine struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

func NewEngine(secret string) Engine {
	return NewEngineWithClock(secret, time.Now)
}

func NewEngineWithClock(secret string, now func() time.Time) Engine {
	return &jwtEngine{
		secret: []byte(secret),
		now:    now,
		// Expiration is checked by the engine itself so it only happens after the signature passed.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

func (e *jwtEngine) Generate(claims Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultExpiration
	}

	now := e.now().Truncate(time.Second)
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if claims.Subject == "" {
		claims.Subject = claims.UserID
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(e.secret)
}

func (e *jwtEngine) Verify(token string) (*Claims, error) {
	if !hasThreeSegments(token) {
		return nil, ErrFormat
	}

	// Nothing of the header or payload is decoded before the signature matched.
	parts := strings.Split(token, ".")
	if err := jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], parts[2], e.secret); err != nil {
		return nil, ErrSignature
	}

	var claims Claims
	_, err := e.parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return e.secret, nil
	})
	if err != nil {
		var verr *jwt.ValidationError
		if errors.As(err, &verr) && verr.Errors&jwt.ValidationErrorMalformed != 0 {
			return nil, ErrFormat
		}
		return nil, ErrSignature
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(e.now()) {
		return nil, ErrExpired
	}

	return &claims, nil
}

func hasThreeSegments(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}

	for _, p := range parts {
		if p == "" {
			return false
		}
	}

	return true
}
