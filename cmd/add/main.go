// Command add creates a shopping-list item for the token's user. It runs
// the same validation and submission path the mobile client uses.
//
// Usage:
//
//	add --token=<access token> --name="Olive oil" --price=12,50 [--category=Pantry] [--description=...]
//
// Requires DATABASE_DSN and AUTH_JWT_SECRET (via config or environment).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/heartmarshall/shoplist-sync/internal/app"
	"github.com/heartmarshall/shoplist-sync/internal/auth"
	"github.com/heartmarshall/shoplist-sync/internal/config"
	"github.com/heartmarshall/shoplist-sync/internal/domain"
	"github.com/heartmarshall/shoplist-sync/internal/service/list"
	"github.com/heartmarshall/shoplist-sync/internal/store/postgres"
	"github.com/heartmarshall/shoplist-sync/pkg/ctxutil"
)

func main() {
	token := flag.String("token", "", "access token of the acting user")
	name := flag.String("name", "", "item name")
	priceText := flag.String("price", "", "item price, decimal comma accepted")
	category := flag.String("category", "", "item category")
	description := flag.String("description", "", "item description")
	flag.Parse()

	if *token == "" || *name == "" || *priceText == "" {
		fmt.Fprintln(os.Stderr, "Usage: add --token=<access token> --name=... --price=... [--category=...] [--description=...]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	price, err := domain.ParsePrice(*priceText)
	if err != nil {
		logger.Error("invalid price", slog.String("error", err.Error()))
		os.Exit(1)
	}

	manager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)
	userID, err := manager.ValidateAccessToken(*token)
	if err != nil {
		logger.Error("invalid token", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	service := list.NewService(logger, postgres.New(logger, pool), nil, 0)

	input := list.SaveInput{Name: *name, Price: price}
	if *category != "" {
		input.Category = category
	}
	if *description != "" {
		input.Description = description
	}

	id, err := service.Save(ctxutil.WithUserID(ctx, userID), input)
	if err != nil {
		logger.Error("save failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Printf("Created item %s.\n", id)
}
