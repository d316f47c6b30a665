package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/rizkipratama/tierdocs/internal"
	"github.com/rizkipratama/tierdocs/internal/identity"
)

// Service is the admission and authentication engine: it decides who may
// register and at what tier, and exchanges credentials for bearer tokens.
type Service struct {
	store             RegistrationStore
	users             identity.Repository
	tokenGenerator    TokenGeneratorAPI
	bcryptCost        int
	defaultDepartment string
	logger            *slog.Logger
}

func NewService(store RegistrationStore, users identity.Repository, tokenGen TokenGeneratorAPI, bcryptCost int, defaultDepartment string, logger *slog.Logger) *Service {
	return &Service{
		store:             store,
		users:             users,
		tokenGenerator:    tokenGen,
		bcryptCost:        bcryptCost,
		defaultDepartment: defaultDepartment,
		logger:            logger,
	}
}

func NewJWTTokenGenerator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
	}
}

// Register admits a new user. With no access code the call succeeds only
// against an empty user store and creates the tier-1 bootstrap user; with a
// code the new user inherits tier, department and parent from the code, and
// the code's usage budget is consumed in the same atomic step as the insert.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*RegisterResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	passwordHash, err := HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		s.logger.Error("registration failed: password hashing", "error", err)
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	now := time.Now()
	newUser := &identity.User{
		Username:     dto.Username,
		Email:        dto.Email,
		Name:         dto.Name,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if dto.AccessCode == "" {
		newUser.TierLevel = identity.RootTierLevel
		newUser.Department = dto.Department
		if newUser.Department == "" {
			newUser.Department = s.defaultDepartment
		}

		if err := s.store.CreateRootUser(ctx, newUser); err != nil {
			s.logger.Warn("bootstrap registration rejected", "error", err, "username", dto.Username)
			return nil, err
		}

		s.logger.Info("bootstrap user registered",
			"user_id", newUser.ID,
			"username", newUser.Username,
			"tier_level", newUser.TierLevel)
	} else {
		code, err := s.store.CreateUserWithCode(ctx, newUser, dto.AccessCode)
		if err != nil {
			s.logger.Warn("code registration rejected", "error", err, "username", dto.Username)
			return nil, err
		}

		s.logger.Info("user registered via access code",
			"user_id", newUser.ID,
			"username", newUser.Username,
			"tier_level", newUser.TierLevel,
			"access_code_id", code.ID,
			"issuer_id", code.IssuerID)
	}

	tokens, err := s.issueTokens(newUser)
	if err != nil {
		return nil, err
	}

	return &RegisterResult{
		Tokens:  tokens,
		Profile: identity.ToProfileDTO(newUser),
	}, nil
}

// Authenticate validates credentials and returns tokens.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	user, err := s.users.GetByUsername(ctx, dto.Username)
	if err != nil {
		return AuthTokens{}, ErrInvalidCredentials
	}

	if err := VerifyPassword(user.PasswordHash, dto.Password); err != nil {
		return AuthTokens{}, ErrInvalidCredentials
	}

	if !user.IsActive {
		return AuthTokens{}, ErrUserInactive
	}

	return s.issueTokens(user)
}

// RefreshTokens validates a refresh token and returns a fresh pair. Tier and
// department claims are re-read from the store so a deactivation or a stale
// claim cannot outlive the access token.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return AuthTokens{}, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return AuthTokens{}, ErrInvalidToken
	}
	if !user.IsActive {
		return AuthTokens{}, ErrUserInactive
	}

	return s.issueTokens(user)
}

// ValidateAccessToken validates an access token and returns its claims.
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateToken(tokenString)
}

// GetUser loads the active user behind a validated token.
func (s *Service) GetUser(ctx context.Context, userID int64) (*identity.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	return user, nil
}

func (s *Service) issueTokens(user *identity.User) (AuthTokens, error) {
	accessToken, err := s.tokenGenerator.GenerateAccessToken(user)
	if err != nil {
		s.logger.Error("failed to generate access token", "error", err, "user_id", user.ID)
		return AuthTokens{}, err
	}

	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(user)
	if err != nil {
		s.logger.Error("failed to generate refresh token", "error", err, "user_id", user.ID)
		return AuthTokens{}, err
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// GenerateAccessToken creates a new access token carrying identity and tier claims.
func (j *JWTTokenGenerator) GenerateAccessToken(user *identity.User) (string, error) {
	return j.signedToken(user, j.AccessTokenTTL, j.AccessTokenSecret)
}

// GenerateRefreshToken creates a new refresh token.
func (j *JWTTokenGenerator) GenerateRefreshToken(user *identity.User) (string, error) {
	return j.signedToken(user, j.RefreshTokenTTL, j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) signedToken(user *identity.User, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:     strconv.FormatInt(user.ID, 10),
		Username:   user.Username,
		TierLevel:  user.TierLevel,
		Department: user.Department,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   strconv.FormatInt(user.ID, 10),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken validates a JWT token and returns claims.
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		// Long-lived tokens were signed with the refresh secret.
		if claims, ok := token.Claims.(*Claims); ok {
			if time.Until(claims.ExpiresAt.Time) > j.AccessTokenTTL {
				return j.RefreshTokenSecret, nil
			}
		}
		return j.AccessTokenSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
