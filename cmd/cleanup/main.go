// Command cleanup deletes a user's shopping-list items older than the given
// age. It is intended to be invoked by an external cron job, not as an
// in-process goroutine.
//
// Usage:
//
//	cleanup --owner=<uuid> [--older-than=720h]
//
// Requires DATABASE_DSN environment variable to be set.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	owner := flag.String("owner", "", "owner uuid whose items to clean up")
	olderThan := flag.Duration("older-than", 30*24*time.Hour, "minimum age of items to delete")
	flag.Parse()

	if *owner == "" {
		fmt.Fprintln(os.Stderr, "Usage: cleanup --owner=<uuid> [--older-than=720h]")
		os.Exit(1)
	}
	ownerID, err := uuid.Parse(*owner)
	if err != nil {
		log.Fatalf("invalid owner uuid: %v", err)
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		log.Fatal("DATABASE_DSN environment variable is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("connect to database: %v", err)
	}
	defer pool.Close()

	threshold := time.Now().Add(-*olderThan)

	tag, err := pool.Exec(ctx,
		"DELETE FROM items WHERE owner_id = $1 AND created_at < $2",
		ownerID, threshold,
	)
	if err != nil {
		log.Fatalf("cleanup items: %v", err)
	}

	fmt.Printf("Deleted %d item(s) of owner %s older than %s.\n", tag.RowsAffected(), ownerID, *olderThan)
}
