package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/repository"
)

// Principal is the authenticated caller of a request
type Principal struct {
	Role models.Role
	ID   int64
}

// Claims are the JWT claims issued at login. Type is 0 for users, 1 for tailors.
type Claims struct {
	jwt.RegisteredClaims
	Type models.Role `json:"typ"`
}

// AuthService handles login and token verification
type AuthService struct {
	users   repository.UserRepository
	tailors repository.TailorRepository
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(users repository.UserRepository, tailors repository.TailorRepository, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		users:   users,
		tailors: tailors,
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Login checks credentials for role and returns a session with a fresh token
func (s *AuthService) Login(ctx context.Context, role models.Role, req models.LoginRequest) (*models.SessionResponse, error) {
	var (
		id   int64
		hash string
		resp = &models.SessionResponse{Role: role}
	)

	switch role {
	case models.RoleUser:
		u, err := s.users.GetUserByEmail(ctx, req.Email)
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		if err != nil {
			return nil, err
		}
		id, hash, resp.User = u.ID, u.PasswordHash, u
	case models.RoleTailor:
		t, err := s.tailors.GetTailorByEmail(ctx, req.Email)
		if errors.Is(err, repository.ErrTailorNotFound) {
			return nil, ErrInvalidCredentials
		}
		if err != nil {
			return nil, err
		}
		id, hash, resp.Tailor = t.ID, t.PasswordHash, t
	default:
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.IssueToken(Principal{Role: role, ID: id})
	if err != nil {
		return nil, err
	}
	resp.Token = token
	return resp, nil
}

// IssueToken signs an HS256 token for p
func (s *AuthService) IssueToken(p Principal) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Type: p.Role,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// ParseToken verifies a token and returns its principal
func (s *AuthService) ParseToken(token string) (Principal, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return Principal{}, ErrInvalidToken
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Principal{}, ErrInvalidToken
	}
	if claims.Type != models.RoleUser && claims.Type != models.RoleTailor {
		return Principal{}, ErrInvalidToken
	}
	return Principal{Role: claims.Type, ID: id}, nil
}

// Session loads the profile behind p
func (s *AuthService) Session(ctx context.Context, p Principal) (*models.SessionResponse, error) {
	resp := &models.SessionResponse{Role: p.Role}
	switch p.Role {
	case models.RoleUser:
		u, err := s.users.GetUser(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		resp.User = u
	case models.RoleTailor:
		t, err := s.tailors.GetTailor(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		resp.Tailor = t
	default:
		return nil, ErrInvalidToken
	}
	return resp, nil
}
