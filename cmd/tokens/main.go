package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/adapter/repo"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/infra"
)

const usage = `usage:
  tokens set-tier -email user@example.com -tier pro
  tokens grant    -id <uuid> -amount 500 [-note "support credit"]
  tokens show     -email user@example.com`

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		exitWithError(errors.New(usage))
	}
	cmd := os.Args[1]

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	idFlag := fs.String("id", "", "user ID (UUID)")
	emailFlag := fs.String("email", "", "user email")
	tierFlag := fs.String("tier", "", "subscription tier (free, basic, pro, pro_plus, ultimate)")
	amountFlag := fs.Int("amount", 0, "tokens to grant")
	noteFlag := fs.String("note", "manual grant", "ledger description for grants")
	_ = fs.Parse(os.Args[2:])

	userID := strings.TrimSpace(*idFlag)
	email := strings.TrimSpace(*emailFlag)
	if userID == "" && email == "" {
		exitWithError(errors.New("either -id or -email must be provided"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "tokens").Logger()
	users := repo.NewUserRepository(infra.NewSQLRunner(pool, logger))

	var user *domain.User
	if userID != "" {
		user, err = users.GetByID(ctx, userID)
	} else {
		user, err = users.GetByEmail(ctx, email)
	}
	if err != nil {
		exitWithError(fmt.Errorf("failed to load user: %w", err))
	}

	switch cmd {
	case "set-tier":
		tier, err := domain.ParseTier(strings.ToLower(strings.TrimSpace(*tierFlag)))
		if err != nil {
			exitWithError(fmt.Errorf("-tier %q: %w", *tierFlag, err))
		}
		user, err = users.SetTier(ctx, user.ID, tier)
		if err != nil {
			exitWithError(fmt.Errorf("failed to set tier: %w", err))
		}
	case "grant":
		user, err = users.GrantTokens(ctx, user.ID, *amountFlag, *noteFlag)
		if err != nil {
			exitWithError(fmt.Errorf("failed to grant tokens: %w", err))
		}
	case "show":
	default:
		exitWithError(fmt.Errorf("unknown command %q\n%s", cmd, usage))
	}

	balance := fmt.Sprint(user.AvailableTokens)
	if user.Tier.Unlimited() {
		balance = "unlimited"
	}
	fmt.Printf("User %s (%s) tier=%s balance=%s\n", user.ID, user.Email, user.Tier, balance)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
