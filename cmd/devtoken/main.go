// Command devtoken mints a bearer token for local development.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"geofeed/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	userID := flag.String("user", "", "Subject (user id) of the token")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	if *userID == "" {
		log.Fatal("usage: go run ./cmd/devtoken -user <id> [-ttl 24h]")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("refusing to mint development tokens in production")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   *userID,
		Issuer:    cfg.JWTIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
	}
	if cfg.JWTAudience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.JWTAudience}
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
