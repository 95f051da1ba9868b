package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

type Admin struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type ServiceConfig struct {
	JWTSecret string
	TokenTTL  time.Duration

	// Bootstrap credentials create the first admin on startup when the
	// admins table is empty.
	BootstrapUsername string
	BootstrapPassword string
}

type Service struct {
	db  *sql.DB
	cfg ServiceConfig
}

func NewService(db *sql.DB, cfg ServiceConfig) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 8 * time.Hour
	}
	return &Service{db: db, cfg: cfg}
}

// Bootstrap seeds the first admin account if none exists. Safe to call on
// every startup.
func (s *Service) Bootstrap(ctx context.Context) error {
	username := strings.TrimSpace(s.cfg.BootstrapUsername)
	if username == "" || s.cfg.BootstrapPassword == "" {
		return nil
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count); err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.cfg.BootstrapPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash bootstrap password: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (username, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4)
	`, username, string(hash), "admin", time.Now().UTC()); err != nil {
		return fmt.Errorf("insert bootstrap admin: %w", err)
	}
	return nil
}

func (s *Service) Login(ctx context.Context, username, password string) (string, *Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	var admin Admin
	var hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role FROM admins WHERE username = $1
	`, username).Scan(&admin.ID, &admin.Username, &hash, &admin.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("load admin: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(&admin)
	if err != nil {
		return "", nil, err
	}
	return token, &admin, nil
}

type claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func (s *Service) issueToken(admin *Admin) (string, error) {
	now := time.Now()
	c := &claims{
		Username: admin.Username,
		Role:     admin.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", admin.ID),
			Issuer:    "aptisurvey",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := t.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a bearer token and returns the admin identity carried
// in its claims. The DB is not consulted; token lifetime bounds staleness.
func (s *Service) ParseToken(tokenStr string) (*Admin, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	c, ok := token.Claims.(*claims)
	if !ok {
		return nil, ErrInvalidToken
	}

	var id int64
	if _, err := fmt.Sscanf(c.Subject, "%d", &id); err != nil {
		return nil, ErrInvalidToken
	}
	return &Admin{ID: id, Username: c.Username, Role: c.Role}, nil
}
