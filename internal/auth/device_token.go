package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tickethub/internal/status"
)

// ScannerClaims is the JWT payload issued to scanner devices after they
// exchange their provisioning key. The token is what a gate device presents
// on scan-verification calls.
type ScannerClaims struct {
	DeviceID string `json:"device_id"`
	VenueID  string `json:"venue_id,omitempty"`
	jwt.RegisteredClaims
}

// IssueScannerToken signs a short-lived HMAC token for a scanner device.
func IssueScannerToken(secret []byte, deviceID, venueID string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", status.E(status.Internal, "scanner token secret is not configured")
	}

	now := time.Now()
	claims := ScannerClaims{
		DeviceID: deviceID,
		VenueID:  venueID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   deviceID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", status.Wrap(status.Internal, "failed to sign scanner token", err)
	}
	return signed, nil
}

// ParseScannerToken validates a scanner token and returns scanner claims.
// An empty secret is refused outright: HMAC over an empty key is computable
// by anyone, so verifying against it would accept forged tokens.
func ParseScannerToken(secret []byte, tokenString string) (*Claims, error) {
	if len(secret) == 0 {
		return nil, status.E(status.Internal, "scanner token secret is not configured")
	}
	if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
		tokenString = tokenString[7:]
	}

	claims := ScannerClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || token == nil || !token.Valid {
		return nil, status.Wrap(status.Unauthenticated, "invalid scanner token", err)
	}

	return &Claims{
		UserID: claims.DeviceID,
		Role:   Role{Kind: RoleScanner, VenueID: claims.VenueID},
	}, nil
}
