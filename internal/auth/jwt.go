// Package auth provides JWT issuance and verification plus password
// hashing for user profiles.
package auth

import (
	"fmt"
	"time"

	"github.com/aethra/qualis/internal/errors"
	"github.com/aethra/qualis/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Claims carried inside a Qualis token
type Claims struct {
	UserID uuid.UUID       `json:"user_id"`
	Email  string          `json:"email"`
	Role   models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Service issues and verifies tokens and checks credentials
type Service struct {
	db       *gorm.DB
	secret   []byte
	tokenTTL time.Duration
}

// NewService creates a new auth service
func NewService(db *gorm.DB, secret string, tokenTTL time.Duration) *Service {
	return &Service{db: db, secret: []byte(secret), tokenTTL: tokenTTL}
}

// HashPassword hashes a password with bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Login verifies credentials and returns a signed token with the
// matching profile.
func (s *Service) Login(email, password string) (string, *models.UserProfile, error) {
	var user models.UserProfile
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return "", nil, errors.NewUnauthorizedError("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, errors.NewUnauthorizedError("invalid credentials")
	}

	token, err := s.IssueToken(&user)
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}

// IssueToken signs a token for a user
func (s *Service) IssueToken(user *models.UserProfile) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			Issuer:    "qualis",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", errors.NewInternalError(err)
	}
	return signed, nil
}

// VerifyToken parses and validates a token string
func (s *Service) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.NewUnauthorizedError("invalid or expired token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.NewUnauthorizedError("invalid token claims")
	}
	return claims, nil
}

// GetUser loads a profile by ID
func (s *Service) GetUser(id uuid.UUID) (*models.UserProfile, error) {
	var user models.UserProfile
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("user")
		}
		return nil, errors.NewInternalError(err)
	}
	return &user, nil
}

// CreateUser registers a profile with a hashed password
func (s *Service) CreateUser(email, password, fullName string, role models.UserRole) (*models.UserProfile, error) {
	if !role.Valid() {
		return nil, errors.NewValidationError("role", fmt.Sprintf("unknown role '%s'", role))
	}

	var count int64
	s.db.Model(&models.UserProfile{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return nil, errors.NewConflictError("user", fmt.Sprintf("user '%s' already exists", email))
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	user := models.UserProfile{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         role,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, errors.NewInternalError(err)
	}
	return &user, nil
}
