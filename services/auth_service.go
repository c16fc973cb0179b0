package services

import (
	"context"
	"errors"
	"fmt"
	"storefront/libs"
	"storefront/models"

	"go.uber.org/zap"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type StoreAccount interface {
	Login(ctx context.Context, username, password string) (string, error)
	Signup(ctx context.Context, req models.SignupRequest) error
	Me(ctx context.Context, token string) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, token string, update models.UpdateProfileRequest) (*models.UserProfile, error)
	ListOrders(ctx context.Context, token string) ([]models.Order, error)
}

type AuthService struct {
	account StoreAccount
	logger  *zap.Logger
}

func NewAuthService(account StoreAccount, logger *zap.Logger) *AuthService {
	return &AuthService{account: account, logger: logger}
}

func (s *AuthService) Login(ctx context.Context, sess *Session, req models.LoginRequest) error {
	token, err := s.account.Login(ctx, req.Username, req.Password)
	if errors.Is(err, libs.ErrUnauthorized) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return sess.Credential.Login(ctx, token)
}

// Signup registers an account upstream. The session stays logged out.
func (s *AuthService) Signup(ctx context.Context, req models.SignupRequest) error {
	if err := s.account.Signup(ctx, req); err != nil {
		return fmt.Errorf("signup: %w", err)
	}
	return nil
}

// Profile returns the account profile with totals over its order history.
func (s *AuthService) Profile(ctx context.Context, sess *Session) (*models.ProfileResponse, error) {
	token, err := s.token(ctx, sess)
	if err != nil {
		return nil, err
	}

	user, err := s.account.Me(ctx, token)
	if err != nil {
		return nil, s.rejected(ctx, sess, "load profile", err)
	}

	orders, err := s.account.ListOrders(ctx, token)
	if err != nil {
		return nil, s.rejected(ctx, sess, "list orders", err)
	}

	profile := &models.ProfileResponse{User: *user, TotalOrders: len(orders)}
	for _, o := range orders {
		profile.TotalSpent += o.TotalPrice
	}
	return profile, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, sess *Session, update models.UpdateProfileRequest) (*models.UserProfile, error) {
	token, err := s.token(ctx, sess)
	if err != nil {
		return nil, err
	}

	user, err := s.account.UpdateProfile(ctx, token, update)
	if err != nil {
		return nil, s.rejected(ctx, sess, "update profile", err)
	}
	return user, nil
}

// Logout forgets the credential and the checkout draft. The cart is kept.
func (s *AuthService) Logout(ctx context.Context, sess *Session) error {
	sess.Address.Reset()
	return sess.Credential.Logout(ctx)
}

func (s *AuthService) Status(ctx context.Context, sess *Session) models.SessionStatus {
	return models.SessionStatus{
		SessionID:  sess.ID,
		IsLoggedIn: sess.Credential.IsLoggedIn(ctx),
		CartCount:  sess.Cart.Count(),
	}
}

// ListOrders returns the order history. A rejected token logs the session
// out.
func (s *AuthService) ListOrders(ctx context.Context, sess *Session) ([]models.Order, error) {
	token, err := s.token(ctx, sess)
	if err != nil {
		return nil, err
	}

	orders, err := s.account.ListOrders(ctx, token)
	if err != nil {
		return nil, s.rejected(ctx, sess, "list orders", err)
	}
	return orders, nil
}

func (s *AuthService) token(ctx context.Context, sess *Session) (string, error) {
	token, err := sess.Credential.Token(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrNotLoggedIn
	}
	return token, nil
}

// rejected logs the session out when the store API refused its token.
func (s *AuthService) rejected(ctx context.Context, sess *Session, op string, err error) error {
	if errors.Is(err, libs.ErrUnauthorized) {
		s.expire(ctx, sess)
		return ErrNotLoggedIn
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *AuthService) expire(ctx context.Context, sess *Session) {
	if err := sess.Credential.Logout(ctx); err != nil {
		s.logger.Warn("failed to drop rejected credential", zap.String("session_id", sess.ID), zap.Error(err))
	}
}
