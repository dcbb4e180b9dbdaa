package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-selftest/internal/bank"
	"github.com/stemsi/exstem-selftest/internal/config"
	"github.com/stemsi/exstem-selftest/internal/database"
	"github.com/stemsi/exstem-selftest/internal/logger"
	"github.com/stemsi/exstem-selftest/internal/model"
	"github.com/stemsi/exstem-selftest/internal/repository"
	"github.com/stemsi/exstem-selftest/internal/service"
)

func main() {
	var (
		path   string
		bankID string
		name   string
	)
	flag.StringVar(&path, "file", "", "Path to a JSON bank file (default: bundled sample bank)")
	flag.StringVar(&bankID, "bank", "", "Replace the questions of this existing bank instead of creating one")
	flag.StringVar(&name, "name", "", "Bank name override")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// ─── Read Bank File ────────────────────────────────────────────────
	var (
		file *bank.File
		err  error
	)
	if path == "" {
		file, err = bank.Embedded()
	} else {
		var f *os.File
		if f, err = os.Open(path); err == nil {
			file, err = bank.Decode(f)
			f.Close()
		}
	}
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to read bank")
	}
	if name != "" {
		file.Name = name
	}
	if file.Name == "" {
		file.Name = "Imported bank"
	}

	// ─── Connect ───────────────────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	bankService := service.NewBankService(
		repository.NewBankRepository(pool),
		repository.NewQuestionRepository(pool),
		rdb,
		log,
	)

	// ─── Create or Resolve Bank ────────────────────────────────────────
	var id uuid.UUID
	if bankID != "" {
		if id, err = uuid.Parse(bankID); err != nil {
			log.Fatal().Err(err).Msg("Invalid -bank id")
		}
		if _, err := bankService.GetByID(ctx, id); err != nil {
			log.Fatal().Err(err).Str("bank_id", bankID).Msg("Bank not found")
		}
	} else {
		b := &model.QuestionBank{Name: file.Name, Description: file.Description}
		if err := bankService.Create(ctx, b); err != nil {
			log.Fatal().Err(err).Msg("Failed to create bank")
		}
		id = b.ID
		fmt.Printf("Created bank %q with ID: %s\n", b.Name, id)
	}

	// ─── Import Questions ──────────────────────────────────────────────
	issues, err := bankService.ReplaceQuestions(ctx, id, file.Questions)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to import questions")
	}

	for _, is := range issues {
		fmt.Printf("  question #%d (%s): %v\n", is.Index+1, is.QuestionID, is.Fields)
	}
	fmt.Printf("\nSeed completed! Imported %d questions into %s (%d with issues).\n",
		len(file.Questions), id, len(issues))
}
