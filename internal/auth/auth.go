package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/telana99/vehicle-record-ledger/internal/db"
	"github.com/telana99/vehicle-record-ledger/internal/models"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPrincipalExists    = errors.New("principal already registered")
)

// Service authenticates principals. The ledger treats a principal as an
// opaque, already-authenticated handle; this service is where that
// authentication happens.
type Service struct {
	jwtSecret   []byte
	tokenExp    time.Duration
	credentials db.CredentialCollection
}

// NewService creates a new authentication service
func NewService(credentials db.CredentialCollection) (*Service, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default-secret-key-change-in-production"
	}

	expStr := os.Getenv("JWT_EXPIRY")
	exp := 24 * time.Hour // default 24 hours
	if expStr != "" {
		if parsed, err := time.ParseDuration(expStr); err == nil {
			exp = parsed
		}
	}

	return &Service{
		jwtSecret:   []byte(secret),
		tokenExp:    exp,
		credentials: credentials,
	}, nil
}

// Register creates a credential for a new principal. The secret is stored
// only as a bcrypt hash.
func (s *Service) Register(ctx context.Context, principal models.Principal, secret string) (*models.Credential, error) {
	if err := s.ValidatePrincipal(principal); err != nil {
		return nil, err
	}
	if err := s.ValidateSecret(secret); err != nil {
		return nil, err
	}

	if _, err := s.credentials.FindCredentialByPrincipal(ctx, principal); err == nil {
		return nil, ErrPrincipalExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash secret: %w", err)
	}

	cred := models.Credential{
		ID:         primitive.NewObjectID(),
		Principal:  principal,
		SecretHash: string(hash),
		CreatedAt:  time.Now(),
	}
	if err := s.credentials.InsertCredential(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}
	return &cred, nil
}

// IssueToken exchanges a principal credential for a signed bearer token.
func (s *Service) IssueToken(ctx context.Context, principal models.Principal, secret string) (string, error) {
	cred, err := s.credentials.FindCredentialByPrincipal(ctx, principal)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.SecretHash), []byte(secret)) != nil {
		return "", ErrInvalidCredentials
	}

	claims := jwt.MapClaims{
		"principal": string(cred.Principal),
		"exp":       time.Now().Add(s.tokenExp).Unix(),
		"iat":       time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken validates a bearer token and returns the caller principal.
func (s *Service) ValidateToken(tokenString string) (models.Principal, error) {
	// Remove "Bearer " prefix if present
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	principal, ok := claims["principal"].(string)
	if !ok || principal == "" {
		return "", ErrInvalidToken
	}

	return models.Principal(principal), nil
}

// ExtractTokenFromHeader extracts token from Authorization header
func (s *Service) ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrInvalidToken
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrInvalidToken
	}

	return parts[1], nil
}

// ValidateSecret validates secret strength
func (s *Service) ValidateSecret(secret string) error {
	if len(secret) < 8 {
		return errors.New("secret must be at least 8 characters long")
	}
	return nil
}

// ValidatePrincipal validates principal handle format
func (s *Service) ValidatePrincipal(principal models.Principal) error {
	if len(principal) < 3 {
		return errors.New("principal must be at least 3 characters long")
	}
	if len(principal) > 128 {
		return errors.New("principal must be less than 128 characters")
	}
	return nil
}
