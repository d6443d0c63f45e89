// Command watch renders a live view of a user's shopping list in the
// terminal. It follows the same store subscription the mobile client uses,
// so every write from any device shows up as soon as the database announces
// it.
//
// Usage:
//
//	watch --token=<access token> [--search=milk] [--category=Dairy]
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
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/heartmarshall/shoplist-sync/internal/app"
	"github.com/heartmarshall/shoplist-sync/internal/auth"
	"github.com/heartmarshall/shoplist-sync/internal/config"
	"github.com/heartmarshall/shoplist-sync/internal/store/postgres"
)

func main() {
	token := flag.String("token", "", "access token of the user to watch")
	search := flag.String("search", "", "search text filter")
	category := flag.String("category", "", "category filter (empty = all)")
	flag.Parse()

	if *token == "" {
		fmt.Fprintln(os.Stderr, "Usage: watch --token=<access token> [--search=...] [--category=...]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)
	logger.Info("starting watch", slog.String("version", app.BuildVersion()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	pool, err := postgres.NewPool(connectCtx, cfg.Database)
	cancel()
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	manager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)
	provider := auth.NewTokenProvider(logger, manager)

	shoplist := app.NewShoplist(logger, provider, postgres.New(logger, pool), cfg.List)
	shoplist.SetSearch(*search)
	if *category != "" {
		shoplist.SetCategory(category)
	}

	unsubscribe := shoplist.OnViewChange(render)
	defer unsubscribe()

	if err := shoplist.Start(ctx); err != nil {
		logger.Error("start failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer shoplist.Stop()

	// Signing in starts the session and triggers the first render.
	if err := provider.SetToken(*token); err != nil {
		logger.Error("invalid token", slog.String("error", err.Error()))
		os.Exit(1)
	}

	<-ctx.Done()
}

func render(v app.View) {
	header := color.New(color.FgCyan, color.Bold)
	faint := color.New(color.Faint)
	price := color.New(color.FgGreen)

	header.Printf("\n%d item(s)", len(v.Items))
	if len(v.Categories) > 0 {
		faint.Printf("  categories: %v", v.Categories)
	}
	fmt.Println()

	for _, item := range v.Items {
		fmt.Printf("  %-30s %s", item.Name, price.Sprintf("%10.2f", item.Price))
		if c := item.CategoryValue(); c != "" {
			faint.Printf("  [%s]", c)
		}
		fmt.Println()
	}

	fmt.Printf("  total: %s\n", price.Sprintf("%.2f", v.Total))
}
