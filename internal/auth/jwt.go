package auth

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// jwksTimeout bounds every JWKS fetch so a stalled identity provider
// cannot hang a request.
const jwksTimeout = 10 * time.Second

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrMissingClaims = errors.New("missing required claims")
	ErrNoToken       = errors.New("no session token")
)

// TokenVerifier turns a raw session token into a User.
type TokenVerifier interface {
	VerifyToken(tokenString string) (*User, error)
}

// JWTVerifier checks Supabase session tokens. With a shared secret it
// accepts HS256 tokens; with a JWKS URL it accepts the asymmetric keys
// published there.
type JWTVerifier struct {
	secret  []byte
	jwks    *keyfunc.JWKS
	methods []string
	mu      sync.RWMutex
}

func NewHMACVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{
		secret:  []byte(secret),
		methods: []string{jwt.SigningMethodHS256.Alg()},
	}
}

func NewJWKSVerifier(jwksURL string) (*JWTVerifier, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Client:            &http.Client{Timeout: jwksTimeout},
		RefreshTimeout:    jwksTimeout,
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	return &JWTVerifier{
		jwks:    jwks,
		methods: []string{"RS256", "ES256"},
	}, nil
}

func (v *JWTVerifier) keyfunc(token *jwt.Token) (interface{}, error) {
	if v.jwks != nil {
		return v.jwks.Keyfunc(token)
	}
	return v.secret, nil
}

func (v *JWTVerifier) VerifyToken(tokenString string) (*User, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	token, err := jwt.Parse(tokenString, v.keyfunc, jwt.WithValidMethods(v.methods), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrMissingClaims
	}

	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrMissingClaims)
	}

	user := &User{ID: userID}
	user.Email, _ = claims["email"].(string)
	if meta, ok := claims["user_metadata"].(map[string]interface{}); ok {
		user.FullName, _ = meta["full_name"].(string)
	}
	return user, nil
}

func (v *JWTVerifier) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.jwks != nil {
		v.jwks.EndBackground()
		v.jwks = nil
	}
}
