package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tailorbook/tailorbook-api/config"
	"github.com/tailorbook/tailorbook-api/models"
)

// Common authentication errors
var (
	ErrEmailTaken         = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("could not authenticate")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrTokenRevoked       = errors.New("token has been revoked")
)

// Claims represents the JWT claims issued for a shop user session
type Claims struct {
	jwt.RegisteredClaims
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
}

// AuthService is the first-party identity provider: it signs users up,
// verifies passwords and issues/validates HS256 session tokens.
type AuthService struct {
	db         *gorm.DB
	secret     []byte
	issuer     string
	expiration time.Duration
	blacklist  TokenBlacklist
}

// NewAuthService creates a new auth service
func NewAuthService(db *gorm.DB, cfg *config.Config, blacklist TokenBlacklist) *AuthService {
	secret := cfg.JWTSecret
	if secret == "" {
		// Development fallback, Validate rejects this in production
		secret = "tailorbook-dev-secret"
	}
	return &AuthService{
		db:         db,
		secret:     []byte(secret),
		issuer:     cfg.JWTIssuer,
		expiration: cfg.JWTExpiration,
		blacklist:  blacklist,
	}
}

// SignUp creates a shop user with a bcrypt-hashed password and returns the
// user together with a signed session token
func (s *AuthService) SignUp(ctx context.Context, name, email, password string) (*models.User, string, error) {
	user := models.User{
		Name:  name,
		Email: strings.ToLower(email),
	}
	if err := user.SetPassword(password); err != nil {
		return nil, "", err
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		// Relies on gorm's TranslateError mapping driver unique violations
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", err
	}

	token, err := s.generateToken(&user)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

// SignIn verifies the email/password pair and returns the user with a signed
// session token. Any mismatch yields ErrInvalidCredentials without revealing
// whether the email exists.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*models.User, string, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !user.CheckPassword(password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.generateToken(&user)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

// SignOut revokes the token for its remaining lifetime. Expired or invalid
// tokens are treated as already signed out.
func (s *AuthService) SignOut(ctx context.Context, tokenString string) error {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return nil
	}

	remaining := time.Duration(0)
	if claims.ExpiresAt != nil {
		remaining = time.Until(claims.ExpiresAt.Time)
	}
	return s.blacklist.Revoke(ctx, claims.ID, remaining)
}

// ValidateToken verifies the token signature, expiry and revocation state
// and returns its claims
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return nil, err
	}

	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// generateToken creates a signed HS256 session token for the user
func (s *AuthService) generateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   user.Email,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: user.ID,
		Email:  user.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// parseToken validates the token signature and standard claims
func (s *AuthService) parseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
