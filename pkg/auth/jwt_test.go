package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/assessment-api/internal/model"
)

func testClinician() *model.Clinician {
	return &model.Clinician{
		ID:       uuid.New(),
		Username: "drsmith",
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewJWTService(Config{Secret: "secret", RefreshSecret: "refresh"})
	clinician := testClinician()

	token, err := svc.GenerateAccessToken(clinician)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, clinician.ID, claims.ClinicianID)
	assert.Equal(t, clinician.Username, claims.Username)
	assert.Equal(t, clinician.ID.String(), claims.Subject)
}

func TestWrongSecretRejected(t *testing.T) {
	issuer := NewJWTService(Config{Secret: "secret-a", RefreshSecret: "refresh"})
	verifier := NewJWTService(Config{Secret: "secret-b", RefreshSecret: "refresh"})

	token, err := issuer.GenerateAccessToken(testClinician())
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessAndRefreshSecretsDiffer(t *testing.T) {
	svc := NewJWTService(Config{Secret: "secret", RefreshSecret: "refresh"})
	clinician := testClinician()

	access, err := svc.GenerateAccessToken(clinician)
	require.NoError(t, err)
	refresh, err := svc.GenerateRefreshToken(clinician)
	require.NoError(t, err)

	_, err = svc.ValidateRefreshToken(access)
	assert.Error(t, err)
	_, err = svc.ValidateAccessToken(refresh)
	assert.Error(t, err)

	claims, err := svc.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, clinician.ID, claims.ClinicianID)
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := NewJWTService(Config{
		Secret:        "secret",
		RefreshSecret: "refresh",
		Expiry:        -time.Minute,
	})

	token, err := svc.GenerateAccessToken(testClinician())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
}
