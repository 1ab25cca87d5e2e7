package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"records-service/internal/model/user"
	"records-service/internal/repository/BlackListRepo"
	"records-service/internal/repository/refreshToken"
	"records-service/internal/repository/resetToken"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const (
	refreshTokenExpireTime = 7 * 24 * time.Hour
	jwtTokenExpireTime     = 3 * time.Hour
	resetTokenExpireTime   = time.Hour
)

var (
	ErrInvalidInput       = errors.New("invalid format")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already exists")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrUserNotFound       = errors.New("user not found")
)

// UserStore is the slice of the user repository the auth service needs.
type UserStore interface {
	Create(ctx context.Context, username, email, passwordHash string) (uint32, error)
	GetByID(ctx context.Context, id uint32) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	UpdatePassword(ctx context.Context, id uint32, passwordHash string) error
}

type AuthService struct {
	users         UserStore
	jwtSecretKey  string
	refreshRepo   *refreshToken.RefreshTokenRepo
	blacklistRepo *BlackListRepo.BlackListRepo
	resetRepo     *resetToken.ResetTokenRepo
}

func New(users UserStore, jwtSecret string, tokenRepo *refreshToken.RefreshTokenRepo, blacklistRepo *BlackListRepo.BlackListRepo, resetRepo *resetToken.ResetTokenRepo) *AuthService {
	return &AuthService{
		users:         users,
		jwtSecretKey:  jwtSecret,
		refreshRepo:   tokenRepo,
		blacklistRepo: blacklistRepo,
		resetRepo:     resetRepo,
	}
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (uint32, error) {
	if username == "" || email == "" || password == "" {
		return 0, ErrInvalidInput
	}

	if !emailRegex.MatchString(email) {
		return 0, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}

	if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing != nil {
		return 0, ErrEmailTaken
	}

	if existing, _ := s.users.GetByUsername(ctx, username); existing != nil {
		return 0, ErrUsernameTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("failed to hash password: %w", err)
	}

	return s.users.Create(ctx, username, email, string(hashedPassword))
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil || u == nil {
		return "", "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", "", ErrInvalidCredentials
	}

	accessToken, err := s.generateJWT(u.ID)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	refresh, err := s.generateRefreshToken(ctx, u.ID)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return accessToken, refresh, nil
}

func (s *AuthService) generateJWT(userID uint32) (string, error) {
	payload := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(jwtTokenExpireTime)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	return token.SignedString([]byte(s.jwtSecretKey))
}

func (s *AuthService) generateRefreshToken(ctx context.Context, userID uint32) (string, error) {
	token := uuid.NewString()
	if err := s.refreshRepo.SaveToken(ctx, userID, token, refreshTokenExpireTime); err != nil {
		return "", err
	}
	return token, nil
}

// GetUIDByToken verifies an access token and returns the owner id it was
// issued for. Blacklisted tokens are rejected even when still valid.
func (s *AuthService) GetUIDByToken(ctx context.Context, token string) (uint32, bool) {
	blacklisted, err := s.blacklistRepo.IsTokenBlacklisted(ctx, token)
	if err != nil || blacklisted {
		return 0, false
	}

	payload := &jwt.RegisteredClaims{}
	parsedToken, err := jwt.ParseWithClaims(token, payload, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecretKey), nil
	})
	if err != nil || !parsedToken.Valid {
		return 0, false
	}

	uid, err := strconv.ParseUint(payload.Subject, 10, 32)
	if err != nil {
		return 0, false
	}

	return uint32(uid), true
}

func (s *AuthService) Logout(ctx context.Context, userID uint32, accessToken string) error {
	if err := s.refreshRepo.DeleteToken(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}

	payload := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(accessToken, payload, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecretKey), nil
	})
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	if err := s.blacklistRepo.AddToken(ctx, accessToken, payload.ExpiresAt.Time); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	return nil
}

func (s *AuthService) RefreshToken(ctx context.Context, userID uint32, oldRefreshToken string) (string, string, error) {
	valid, err := s.refreshRepo.ValidateToken(ctx, userID, oldRefreshToken)
	if err != nil || !valid {
		return "", "", errors.New("expired refresh token")
	}

	newAccessToken, err := s.generateJWT(userID)
	if err != nil {
		return "", "", err
	}

	newRefreshToken, err := s.generateRefreshToken(ctx, userID)
	if err != nil {
		return "", "", err
	}

	return newAccessToken, newRefreshToken, nil
}

// RequestPasswordReset mints a one-time reset token for a registered email.
// Delivery is the caller's concern; the token completes via ResetPassword.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil || u == nil {
		return "", ErrUserNotFound
	}

	token := uuid.NewString()
	if err := s.resetRepo.SaveToken(ctx, token, u.ID, resetTokenExpireTime); err != nil {
		return "", fmt.Errorf("failed to save reset token: %w", err)
	}
	return token, nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return ErrInvalidInput
	}

	userID, err := s.resetRepo.ConsumeToken(ctx, token)
	if err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.users.UpdatePassword(ctx, userID, string(hashedPassword))
}

func (s *AuthService) CurrentUser(ctx context.Context, userID uint32) (*user.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}
