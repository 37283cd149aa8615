package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Payload is the claim set of an access token. Subject carries the bidder
// identity that the bidding engine treats as opaque.
type Payload struct {
	jwt.RegisteredClaims
}

func NewPayload(userID string, duration time.Duration) (Payload, error) {
	tokenID, err := uuid.NewRandom()
	if err != nil {
		return Payload{}, fmt.Errorf("failed to generate tokenID: %w", err)
	}

	now := time.Now()
	payload := Payload{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID.String(),
			Issuer:    "livebid",
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
		},
	}
	return payload, nil
}
