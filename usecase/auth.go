package usecase

import (
	"context"
	"errors"
	"strings"

	domainUser "github.com/mahalbangetid-beep/scb-sub003/domains/user"
	domainWallet "github.com/mahalbangetid-beep/scb-sub003/domains/wallet"
	pkgError "github.com/mahalbangetid-beep/scb-sub003/pkg/error"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/security"
	"github.com/mahalbangetid-beep/scb-sub003/validations"
	"github.com/sirupsen/logrus"
)

type serviceUser struct {
	repo   domainUser.IUserRepository
	wallet domainWallet.IWalletUsecase
	tokens *security.TokenManager
}

func NewUserService(repo domainUser.IUserRepository, wallet domainWallet.IWalletUsecase, tokens *security.TokenManager) domainUser.IUserUsecase {
	return &serviceUser{repo: repo, wallet: wallet, tokens: tokens}
}

func (s *serviceUser) Register(ctx context.Context, req domainUser.RegisterRequest) (domainUser.User, error) {
	if err := validations.ValidateRegister(ctx, req); err != nil {
		return domainUser.User{}, err
	}
	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return domainUser.User{}, pkgError.WrapAppError(err, "failed to secure password", 500)
	}
	u := &domainUser.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         domainUser.RoleUser,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return domainUser.User{}, err
	}
	if s.wallet != nil {
		if _, err := s.wallet.GetWallet(ctx, u.ID); err != nil {
			logrus.WithError(err).WithField("user_id", u.ID).Warn("[AUTH] Failed to open wallet for new user")
		}
	}
	logrus.WithField("user_id", u.ID).Info("[AUTH] User registered")
	return *u, nil
}

func (s *serviceUser) Login(ctx context.Context, req domainUser.LoginRequest) (domainUser.LoginResponse, error) {
	if err := validations.ValidateLogin(ctx, req); err != nil {
		return domainUser.LoginResponse{}, err
	}
	u, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domainUser.ErrUserNotFound) {
			return domainUser.LoginResponse{}, domainUser.ErrInvalidCredentials
		}
		return domainUser.LoginResponse{}, err
	}
	if !security.CheckPasswordHash(req.Password, u.PasswordHash) {
		return domainUser.LoginResponse{}, domainUser.ErrInvalidCredentials
	}
	if !u.IsActive {
		return domainUser.LoginResponse{}, domainUser.ErrUserDisabled
	}
	token, expires, err := s.tokens.Issue(u.ID, string(u.Role))
	if err != nil {
		return domainUser.LoginResponse{}, pkgError.WrapAppError(err, "failed to issue token", 500)
	}
	return domainUser.LoginResponse{Token: token, ExpiresAt: expires, User: *u}, nil
}

func (s *serviceUser) Me(ctx context.Context, userID string) (domainUser.User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return domainUser.User{}, err
	}
	return *u, nil
}

// EnsureAdmin creates the bootstrap admin, or promotes the account if it exists.
func (s *serviceUser) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil
	}
	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == domainUser.RoleAdmin && existing.IsActive {
			return nil
		}
		existing.Role = domainUser.RoleAdmin
		existing.IsActive = true
		return s.repo.Update(ctx, existing)
	case !errors.Is(err, domainUser.ErrUserNotFound):
		return err
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return err
	}
	admin := &domainUser.User{Name: "Administrator", Email: email, PasswordHash: hash, Role: domainUser.RoleAdmin, IsActive: true}
	if err := s.repo.Create(ctx, admin); err != nil {
		return err
	}
	if s.wallet != nil {
		_, _ = s.wallet.GetWallet(ctx, admin.ID)
	}
	logrus.Infof("[AUTH] Bootstrap admin %s created", email)
	return nil
}
