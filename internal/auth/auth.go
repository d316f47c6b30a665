package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rizkipratama/tierdocs/internal/accesscode"
	"github.com/rizkipratama/tierdocs/internal/identity"
	"golang.org/x/crypto/bcrypt"
)

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (*RegisterResult, error)
	Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	GetUser(ctx context.Context, userID int64) (*identity.User, error)
}

// RegistrationStore is the admission boundary. Both operations are atomic:
// CreateRootUser re-checks emptiness and inserts in one step, and
// CreateUserWithCode couples the code's usage increment with the user insert
// so that neither can land without the other.
type RegistrationStore interface {
	HasUsers(ctx context.Context) (bool, error)

	// CreateRootUser inserts u as the tier-1 bootstrap user iff the store
	// holds no users yet. Returns internal.ErrAccessCodeRequired when users
	// already exist and internal.ErrDuplicateUsername on a username clash.
	CreateRootUser(ctx context.Context, u *identity.User) error

	// CreateUserWithCode redeems the code and inserts u in one atomic step,
	// filling u's tier, department and parent from the code and appending a
	// redemption record. The loser of a concurrent race over the code's
	// final use observes internal.ErrInvalidAccessCode.
	CreateUserWithCode(ctx context.Context, u *identity.User, code string) (*accesscode.AccessCode, error)
}

type TokenGeneratorAPI interface {
	GenerateAccessToken(user *identity.User) (token string, err error)
	GenerateRefreshToken(user *identity.User) (token string, err error)
	ValidateToken(tokenString string) (*Claims, error)
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Claims carry the identity, tier and department of the bearer. UserID is
// kept as a string to match the JWT subject field.
type Claims struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	TierLevel  int    `json:"tier_level"`
	Department string `json:"department"`
	jwt.RegisteredClaims
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrUserInactive       = errors.New("user is inactive")
)

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// UserFromContext reads the authenticated user placed by AuthMiddleware.
// The helpers live in the identity package so handler packages can use them
// without depending on auth.
func UserFromContext(ctx context.Context) (*identity.User, bool) {
	return identity.UserFromContext(ctx)
}

func ContextWithUser(ctx context.Context, u *identity.User) context.Context {
	return identity.ContextWithUser(ctx, u)
}
