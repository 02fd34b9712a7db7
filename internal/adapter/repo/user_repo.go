package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/infra"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/sqlinline"
)

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
type UserRepositoryPG struct {
	db infra.TxRunner
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(db infra.TxRunner) *UserRepositoryPG {
	return &UserRepositoryPG{db: db}
}

// UpsertGoogleUser inserts or refreshes a user keyed by email. New users start
// on tier with its full allowance. The boolean reports whether a row was created.
func (r *UserRepositoryPG) UpsertGoogleUser(ctx context.Context, user *domain.User, tier domain.SubscriptionTier) (*domain.User, bool, error) {
	if user == nil || strings.TrimSpace(user.Email) == "" {
		return nil, false, domain.NewValidationError("email", "is required")
	}
	locale := user.Locale
	if locale == "" {
		locale = "en"
	}
	row := r.db.QueryRow(ctx, sqlinline.QUpsertGoogleUser,
		user.GoogleSub,
		strings.ToLower(strings.TrimSpace(user.Email)),
		user.Name,
		user.Picture,
		locale,
		string(tier),
		tier.Allowance(),
	)
	var u domain.User
	var inserted bool
	if err := row.Scan(&u.ID, &u.GoogleSub, &u.Email, &u.Name, &u.Picture, &u.Locale, &u.Role, &u.Tier, &u.AvailableTokens, &u.CreatedAt, &u.UpdatedAt, &inserted); err != nil {
		return nil, false, mapDBError(err)
	}
	return &u, inserted, nil
}

// GetByID fetches a user by UUID.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, sqlinline.QSelectUserByID, id))
}

// GetByEmail fetches a user by case-insensitive email.
func (r *UserRepositoryPG) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, sqlinline.QSelectUserByEmail, strings.TrimSpace(email)))
}

// SetTier moves the user to tier and resets the balance to its allowance.
func (r *UserRepositoryPG) SetTier(ctx context.Context, userID string, tier domain.SubscriptionTier) (*domain.User, error) {
	var updated *domain.User
	err := r.db.InTx(ctx, func(tx infra.SQLExecutor) error {
		_, balance, err := lockBalance(ctx, tx, userID)
		if err != nil {
			return err
		}
		updated, err = scanUser(tx.QueryRow(ctx, sqlinline.QUpdateUserTier, userID, string(tier), tier.Allowance()))
		if err != nil {
			return err
		}
		return insertTx(ctx, tx, userID, nil, domain.TxTierChange, tier.Allowance()-balance, balance, tier.Allowance(), "tier changed to "+string(tier))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GrantTokens adds amount to a metered balance. Unlimited tiers are unchanged.
func (r *UserRepositoryPG) GrantTokens(ctx context.Context, userID string, amount int, description string) (*domain.User, error) {
	if amount <= 0 {
		return nil, domain.NewValidationError("amount", "must be positive")
	}
	err := r.db.InTx(ctx, func(tx infra.SQLExecutor) error {
		tier, balance, err := lockBalance(ctx, tx, userID)
		if err != nil {
			return err
		}
		if tier.Unlimited() {
			return nil
		}
		after := balance + amount
		if _, err := tx.Exec(ctx, sqlinline.QUpdateUserBalance, userID, after); err != nil {
			return mapDBError(err)
		}
		return insertTx(ctx, tx, userID, nil, domain.TxTopUp, amount, balance, after, description)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, userID)
}

// Refund credits amount back for a failed job.
func (r *UserRepositoryPG) Refund(ctx context.Context, userID, jobID string, amount int) error {
	if amount <= 0 {
		return nil
	}
	return r.db.InTx(ctx, func(tx infra.SQLExecutor) error {
		tier, balance, err := lockBalance(ctx, tx, userID)
		if err != nil {
			return err
		}
		after := balance
		if !tier.Unlimited() {
			after = balance + amount
			if _, err := tx.Exec(ctx, sqlinline.QUpdateUserBalance, userID, after); err != nil {
				return mapDBError(err)
			}
		}
		return insertTx(ctx, tx, userID, &jobID, domain.TxRefund, amount, balance, after, "refund for failed video job")
	})
}

// ListTransactions returns the user's ledger newest first.
func (r *UserRepositoryPG) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]domain.TokenTransaction, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.Query(ctx, sqlinline.QListTokenTransactions, userID, limit, offset)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()
	txs := make([]domain.TokenTransaction, 0, limit)
	for rows.Next() {
		var t domain.TokenTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.JobID, &t.Type, &t.Amount, &t.BalanceBefore, &t.BalanceAfter, &t.Description, &t.CreatedAt); err != nil {
			return nil, mapDBError(err)
		}
		txs = append(txs, t)
	}
	return txs, mapDBError(rows.Err())
}

func lockBalance(ctx context.Context, tx infra.SQLExecutor, userID string) (domain.SubscriptionTier, int, error) {
	var tier domain.SubscriptionTier
	var balance int
	if err := tx.QueryRow(ctx, sqlinline.QLockUserBalance, userID).Scan(&tier, &balance); err != nil {
		return "", 0, mapDBError(err)
	}
	return tier, balance, nil
}

func insertTx(ctx context.Context, tx infra.SQLExecutor, userID string, jobID *string, typ domain.TransactionType, amount, before, after int, description string) error {
	if _, err := tx.Exec(ctx, sqlinline.QInsertTokenTransaction, userID, jobID, string(typ), amount, before, after, description); err != nil {
		return fmt.Errorf("insert token transaction: %w", mapDBError(err))
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.GoogleSub, &u.Email, &u.Name, &u.Picture, &u.Locale, &u.Role, &u.Tier, &u.AvailableTokens, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, mapDBError(err)
	}
	return &u, nil
}

var _ domain.UserRepository = (*UserRepositoryPG)(nil)
