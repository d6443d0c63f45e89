// Command mktoken signs an access token for the given user id. It is used
// to bootstrap local development and to feed the watch command.
//
// Usage:
//
//	mktoken --user=<uuid> [--ttl=24h] [--issuer=shoplist]
//
// Requires AUTH_JWT_SECRET environment variable to be set.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/shoplist-sync/internal/auth"
)

func main() {
	user := flag.String("user", "", "user uuid to issue a token for")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	issuer := flag.String("issuer", "shoplist", "token issuer")
	flag.Parse()

	if *user == "" {
		fmt.Fprintln(os.Stderr, "Usage: mktoken --user=<uuid> [--ttl=24h] [--issuer=shoplist]")
		os.Exit(1)
	}
	userID, err := uuid.Parse(*user)
	if err != nil {
		log.Fatalf("invalid user uuid: %v", err)
	}

	secret := os.Getenv("AUTH_JWT_SECRET")
	if secret == "" {
		log.Fatal("AUTH_JWT_SECRET environment variable is required")
	}

	manager := auth.NewJWTManager(secret, *issuer, *ttl)
	token, err := manager.GenerateAccessToken(userID)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}

	fmt.Println(token)
}
