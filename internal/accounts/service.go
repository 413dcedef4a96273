package accounts

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"qrtrack/internal/models"
	"qrtrack/internal/store"

	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	store  store.BusinessStore
	cost   int
	logger *slog.Logger
}

type Options struct {
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	Logger     *slog.Logger
}

func NewService(st store.BusinessStore, options Options) *Service {
	cost := options.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, cost: cost, logger: logger.With("component", "accounts")}
}

func (s *Service) Register(ctx context.Context, businessName, email, password string) (models.Business, error) {
	businessName = strings.TrimSpace(businessName)
	email = normalizeEmail(email)
	if businessName == "" || email == "" || password == "" {
		return models.Business{}, store.Invalid("businessName, email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.Business{}, err
	}

	business, err := s.store.CreateBusiness(ctx, store.CreateBusinessInput{
		BusinessName: businessName,
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return models.Business{}, err
	}
	s.logger.Info("business registered", "business_id", business.BusinessID)
	return business, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (models.Business, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return models.Business{}, store.Invalid("email and password are required")
	}

	business, err := s.store.FindBusinessByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrBusinessNotFound) {
			return models.Business{}, store.ErrInvalidCredentials
		}
		return models.Business{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(business.PasswordHash), []byte(password)); err != nil {
		return models.Business{}, store.ErrInvalidCredentials
	}
	return business, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
