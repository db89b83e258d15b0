package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/assessment-api/internal/model"
	"github.com/jwalitptl/assessment-api/internal/repository"
	"github.com/jwalitptl/assessment-api/pkg/auth"
	"github.com/jwalitptl/assessment-api/pkg/errors"
	"github.com/jwalitptl/assessment-api/pkg/security"
)

type Service struct {
	clinicianRepo repository.ClinicianRepository
	jwtSvc        auth.JWTService
	hasher        security.PasswordHasher
}

func NewService(clinicianRepo repository.ClinicianRepository, jwtSvc auth.JWTService, hasher security.PasswordHasher) *Service {
	return &Service{
		clinicianRepo: clinicianRepo,
		jwtSvc:        jwtSvc,
		hasher:        hasher,
	}
}

// Register creates a clinician account and immediately issues a token
// pair. There is no email verification step.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.TokenResponse, error) {
	if req.Password != req.PasswordConfirm {
		return nil, errors.ValidationField("password", "Passwords must match")
	}

	if existing, _ := s.clinicianRepo.GetByUsername(ctx, req.Username); existing != nil {
		return nil, errors.ValidationField("username", "A user with that username already exists")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.ValidationField("password", err.Error())
	}

	clinician := &model.Clinician{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}

	if err := s.clinicianRepo.Create(ctx, clinician); err != nil {
		return nil, fmt.Errorf("failed to create clinician: %w", err)
	}

	return s.generateTokens(clinician)
}

func (s *Service) Login(ctx context.Context, username, password string) (*model.TokenResponse, error) {
	clinician, err := s.clinicianRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, errors.Unauthorized("invalid credentials", err)
	}

	if err := s.hasher.Compare(clinician.PasswordHash, password); err != nil {
		return nil, errors.Unauthorized("invalid credentials", err)
	}

	return s.generateTokens(clinician)
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.jwtSvc.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, errors.Unauthorized("invalid refresh token", err)
	}

	clinician, err := s.clinicianRepo.Get(ctx, claims.ClinicianID)
	if err != nil {
		return nil, errors.Unauthorized("invalid refresh token", err)
	}

	accessToken, err := s.jwtSvc.GenerateAccessToken(clinician)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &model.TokenResponse{AccessToken: accessToken}, nil
}

// ValidateToken resolves a bearer access token into claims; the auth
// middleware uses it to establish the request's clinician identity.
func (s *Service) ValidateToken(ctx context.Context, token string) (*model.TokenClaims, error) {
	claims, err := s.jwtSvc.ValidateAccessToken(token)
	if err != nil {
		return nil, errors.Unauthorized("invalid token", err)
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, errors.Unauthorized("token expired", nil)
	}
	return claims, nil
}

func (s *Service) generateTokens(clinician *model.Clinician) (*model.TokenResponse, error) {
	accessToken, err := s.jwtSvc.GenerateAccessToken(clinician)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwtSvc.GenerateRefreshToken(clinician)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &model.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
