// Package auth issues and validates seat reconnect tokens. A token binds a
// player identity to a room code and seat so a dropped connection can
// reclaim its seat mid-round without replaying the join flow.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenInvalid = errors.New("seat token is invalid")
	ErrTokenExpired = errors.New("seat token has expired")
)

// SeatClaims is the signed payload of a reconnect token.
type SeatClaims struct {
	RoomCode string    `json:"roomCode"`
	Seat     uint8     `json:"seat"`
	PlayerID uuid.UUID `json:"playerId"`
	jwt.RegisteredClaims
}

// Service signs and parses seat tokens with a shared HMAC secret.
type Service struct {
	secret []byte
	expire time.Duration
}

// NewService builds a token service. expire bounds how long a disconnected
// seat stays reclaimable.
func NewService(secret string, expire time.Duration) *Service {
	return &Service{secret: []byte(secret), expire: expire}
}

// IssueSeatToken signs a reconnect token for the given seat.
func (s *Service) IssueSeatToken(roomCode string, seat uint8, playerID uuid.UUID) (string, error) {
	now := time.Now()
	claims := &SeatClaims{
		RoomCode: roomCode,
		Seat:     seat,
		PlayerID: playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expire)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "rummy-server",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseSeatToken validates a token and returns its claims.
func (s *Service) ParseSeatToken(tokenString string) (*SeatClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SeatClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := token.Claims.(*SeatClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
