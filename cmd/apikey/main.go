// Command apikey provisions credentials for the API. Without -operator it
// creates a terminal API key and prints the row to insert; with -operator
// it mints a signed operator token.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ruralpay/supplycredit/internal/config"
	"github.com/ruralpay/supplycredit/internal/services"
)

func main() {
	name := flag.String("name", "", "terminal name, e.g. \"Kiosk 1\"")
	operator := flag.String("operator", "", "mint an operator token for this subject instead")
	ttl := flag.Duration("ttl", 12*time.Hour, "operator token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *operator != "" {
		token, err := operatorToken(cfg.JWT, *operator, *ttl)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	if strings.TrimSpace(*name) == "" {
		fmt.Fprintln(os.Stderr, "-name is required")
		os.Exit(2)
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	key, hash, err := services.NewCredentialHasher(cfg.Argon2).GenerateAPIKey(id)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("API key (shown once): %s\n\n", key)
	fmt.Printf("INSERT INTO api_credentials (id, name, key_hash) VALUES ('%s', '%s', '%s');\n",
		id, strings.ReplaceAll(*name, "'", "''"), hash)
}

func operatorToken(cfg config.JWTConfig, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.SecretKey))
}
