// Command devtoken mints a signed access token for local development.
// Identity is external to this service; the token only has to carry user_id.
//
//	go run ./cmd/devtoken -user 3f0c... -ttl 8h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"puntoventa/internal/config"
	"puntoventa/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func main() {
	userID := flag.String("user", "", "operator id (uuid); a new one is generated when empty")
	username := flag.String("name", "dev", "username claim")
	ttl := flag.Duration("ttl", 8*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	id := *userID
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		log.Fatal().Err(err).Str("user", id).Msg("user must be a uuid")
	}

	now := time.Now()
	claims := middleware.JWTClaims{
		UserID:   id,
		Username: *username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to sign token")
	}
	fmt.Fprintln(os.Stdout, signed)
}
