package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials signals wrong operator id or password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrWeakPassword signals password doesn't meet requirements.
	ErrWeakPassword = errors.New("auth: password must be at least 8 characters")
	// ErrInvalidToken signals a token that is malformed, expired, or signed
	// with another key.
	ErrInvalidToken = errors.New("auth: invalid token")
)

const (
	defaultTokenTTL = 8 * time.Hour
	operatorClaim   = "ope_id"
)

// Service handles authentication business logic.
type Service struct {
	repo      Repository
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

// LoginResult bundles the token and operator returned after a successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Operator  Operator  `json:"-"`
}

type Option func(*Service)

// WithTokenTTL overrides how long issued tokens stay valid.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new authentication service.
func NewService(repo Repository, jwtSecret string, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  defaultTokenTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new operator account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Operator, error) {
	if len(req.Password) < 8 {
		return nil, ErrWeakPassword
	}

	id := strings.TrimSpace(req.OperatorID)
	name := strings.TrimSpace(req.Name)
	if id == "" || name == "" {
		return nil, fmt.Errorf("auth: operator_id and name are required")
	}
	if len(id) > 64 {
		return nil, fmt.Errorf("auth: operator_id must be at most 64 characters")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	op, err := s.repo.CreateOperator(ctx, CreateOperatorParams{
		ID:           id,
		Name:         name,
		PasswordHash: string(passwordHash),
	})
	if err != nil {
		return nil, err
	}

	return &op, nil
}

// Login authenticates an operator and returns a JWT token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	op, err := s.repo.GetOperator(ctx, strings.TrimSpace(req.OperatorID))
	if err != nil {
		if errors.Is(err, ErrOperatorNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(req.Password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, exp, err := s.IssueToken(op.ID)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{
		Token:     token,
		ExpiresAt: exp,
		Operator:  op,
	}, nil
}

// TokenFor issues a token for an existing operator without a password
// check. The admin CLI uses it.
func (s *Service) TokenFor(ctx context.Context, operatorID string) (LoginResult, error) {
	op, err := s.repo.GetOperator(ctx, strings.TrimSpace(operatorID))
	if err != nil {
		return LoginResult{}, err
	}
	token, exp, err := s.IssueToken(op.ID)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, ExpiresAt: exp, Operator: op}, nil
}

// IssueToken signs a token for operatorID.
func (s *Service) IssueToken(operatorID string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.tokenTTL)
	claims := jwt.MapClaims{
		operatorClaim: operatorID,
		"exp":         exp.Unix(),
		"iat":         now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: generate token: %w", err)
	}
	return signed, exp, nil
}

// VerifyToken validates a JWT token and returns the operator id.
func (s *Service) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	operatorID, ok := claims[operatorClaim].(string)
	if !ok || operatorID == "" {
		return "", fmt.Errorf("%w: missing %s", ErrInvalidToken, operatorClaim)
	}
	return operatorID, nil
}
