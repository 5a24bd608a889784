package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickethub/internal/status"
)

func TestScannerTokenRoundTrip(t *testing.T) {
	secret := []byte("scanner-jwt-secret")

	token, err := IssueScannerToken(secret, "device-01", "the_grand_hall", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseScannerToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "device-01", claims.UserID)
	assert.Equal(t, RoleScanner, claims.Role.Kind)
	assert.Equal(t, "the_grand_hall", claims.Role.VenueID)
}

func TestParseScannerTokenStripsBearerPrefix(t *testing.T) {
	secret := []byte("scanner-jwt-secret")

	token, err := IssueScannerToken(secret, "device-01", "", time.Hour)
	require.NoError(t, err)

	claims, err := ParseScannerToken(secret, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "device-01", claims.UserID)
}

func TestParseScannerTokenRejectsWrongSecret(t *testing.T) {
	token, err := IssueScannerToken([]byte("secret-a"), "device-01", "", time.Hour)
	require.NoError(t, err)

	_, err = ParseScannerToken([]byte("secret-b"), token)
	require.Error(t, err)
	assert.Equal(t, status.Unauthenticated, status.CodeOf(err))
}

func TestParseScannerTokenRejectsExpired(t *testing.T) {
	secret := []byte("scanner-jwt-secret")

	token, err := IssueScannerToken(secret, "device-01", "", -time.Minute)
	require.NoError(t, err)

	_, err = ParseScannerToken(secret, token)
	require.Error(t, err)
	assert.Equal(t, status.Unauthenticated, status.CodeOf(err))
}

func TestIssueScannerTokenRequiresSecret(t *testing.T) {
	_, err := IssueScannerToken(nil, "device-01", "", time.Hour)
	require.Error(t, err)
	assert.Equal(t, status.Internal, status.CodeOf(err))
}

func TestParseScannerTokenRequiresSecret(t *testing.T) {
	// A token HMAC-signed with the empty key must never pass verification
	// against an unconfigured secret.
	claims := ScannerClaims{
		DeviceID: "attacker-device",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "attacker-device",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(""))
	require.NoError(t, err)

	_, err = ParseScannerToken([]byte(""), forged)
	require.Error(t, err)
	assert.Equal(t, status.Internal, status.CodeOf(err))

	_, err = ParseScannerToken(nil, forged)
	require.Error(t, err)
}

func TestIsSiteAdmin(t *testing.T) {
	admin := &Claims{UserID: "u1", Role: Role{Kind: RoleSiteAdmin}}
	assert.True(t, admin.IsSiteAdmin())

	venueAdmin := &Claims{UserID: "u2", Role: Role{Kind: RoleVenueAdmin, VenueID: "v1"}}
	assert.False(t, venueAdmin.IsSiteAdmin())

	var nilClaims *Claims
	assert.False(t, nilClaims.IsSiteAdmin())
}

func TestRoleKindString(t *testing.T) {
	assert.Equal(t, "user", RoleUser.String())
	assert.Equal(t, "scanner", RoleScanner.String())
	assert.Equal(t, "subAdmin", RoleSubAdmin.String())
	assert.Equal(t, "venueAdmin", RoleVenueAdmin.String())
	assert.Equal(t, "siteAdmin", RoleSiteAdmin.String())
}
