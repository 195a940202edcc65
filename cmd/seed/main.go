// File: cmd/seed/main.go
//
// Seeds a fresh database with a batch of invite tokens so the first users
// can register. Run once after the schema is applied:
//
//	go run ./cmd/seed -config config.yaml -count 5 -hours 168
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"webgpt-server/internal/config"
	"webgpt-server/internal/domain/model"
	"webgpt-server/internal/domain/ports/repository"
	pg "webgpt-server/internal/infra/db/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	count := flag.Int("count", 5, "number of invite tokens to mint")
	hours := flag.Int("hours", 168, "access duration granted by each token")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	tokenRepo := pg.NewPostgresInviteTokenRepo(pool)

	// If unused tokens already exist, do nothing.
	existing, err := tokenRepo.List(ctx, repository.NoTX)
	if err != nil {
		log.Fatalf("list tokens: %v", err)
	}
	unused := 0
	for _, t := range existing {
		if !t.IsUsed {
			unused++
		}
	}
	if unused > 0 {
		fmt.Printf("%d unused tokens already present. No changes.\n", unused)
		return
	}

	for i := 0; i < *count; i++ {
		tok, err := model.NewInviteToken(*hours, "")
		if err != nil {
			log.Fatalf("new token: %v", err)
		}
		if err := tokenRepo.Save(ctx, repository.NoTX, tok); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Printf("  - %s (%dh)\n", tok.Code, tok.DurationHours)
	}
	fmt.Printf("minted %d invite tokens\n", *count)
}
