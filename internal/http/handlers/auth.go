package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/middleware"
)

type googleVerifyRequest struct {
	IDToken string `json:"idToken"`
}

type googleVerifyResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	IsNew     bool           `json:"isNew"`
	User      userProfileDTO `json:"user"`
}

type userProfileDTO struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name,omitempty"`
	Picture         string    `json:"picture,omitempty"`
	Locale          string    `json:"locale"`
	Role            string    `json:"role"`
	Tier            string    `json:"subscriptionTier"`
	AvailableTokens int       `json:"availableTokens"`
	Unlimited       bool      `json:"unlimited"`
	CreatedAt       time.Time `json:"createdAt"`
}

type transactionDTO struct {
	ID            string    `json:"id"`
	JobID         *string   `json:"jobId,omitempty"`
	Type          string    `json:"type"`
	Amount        int       `json:"amount"`
	BalanceBefore int       `json:"balanceBefore"`
	BalanceAfter  int       `json:"balanceAfter"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toProfile(u *domain.User) userProfileDTO {
	return userProfileDTO{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Picture:         u.Picture,
		Locale:          u.Locale,
		Role:            string(u.Role),
		Tier:            string(u.Tier),
		AvailableTokens: u.AvailableTokens,
		Unlimited:       u.Tier.Unlimited(),
		CreatedAt:       u.CreatedAt,
	}
}

// AuthGoogle exchanges a Google ID token for an API bearer token, creating the
// account on first sign-in.
func (a *App) AuthGoogle(w http.ResponseWriter, r *http.Request) {
	var req googleVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.IDToken) == "" {
		a.fail(w, r, domain.NewValidationError("idToken", "is required"))
		return
	}
	if a.Verifier == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "google sign-in is not configured")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	ident, err := a.Verifier.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("google verify failed")
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid google token")
		return
	}
	locale := ident.Locale
	if locale == "" {
		locale = middleware.LocaleFromContext(r.Context())
	}
	user, created, err := a.Users.UpsertGoogleUser(r.Context(), &domain.User{
		GoogleSub: ident.Subject,
		Email:     ident.Email,
		Name:      ident.Name,
		Picture:   ident.Picture,
		Locale:    locale,
	}, domain.TierFree)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if created && a.Settings != nil {
		if _, err := a.Settings.ApplyToUser(r.Context(), user.ID); err != nil {
			a.Logger.Error().Err(err).Str("user_id", user.ID).Msg("apply default settings failed")
		}
	}
	token, exp, err := middleware.SignToken(a.JWTSecret, a.JWTIssuer, a.JWTTTL, *user)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, googleVerifyResponse{
		Token:     token,
		ExpiresAt: exp,
		IsNew:     created,
		User:      toProfile(user),
	})
}

func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.fail(w, r, domain.ErrUnauthorized)
		return
	}
	user, err := a.Users.GetByID(r.Context(), userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toProfile(user))
}

// Transactions lists the caller's token ledger, newest first.
func (a *App) Transactions(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.fail(w, r, domain.ErrUnauthorized)
		return
	}
	limit, offset, err := pagination(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	txs, err := a.Users.ListTransactions(r.Context(), userID, limit, offset)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items := make([]transactionDTO, 0, len(txs))
	for _, tx := range txs {
		items = append(items, transactionDTO{
			ID:            tx.ID,
			JobID:         tx.JobID,
			Type:          string(tx.Type),
			Amount:        tx.Amount,
			BalanceBefore: tx.BalanceBefore,
			BalanceAfter:  tx.BalanceAfter,
			Description:   tx.Description,
			CreatedAt:     tx.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"transactions": items})
}

func pagination(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			return 0, 0, domain.NewValidationError("limit", "must be a non-negative integer")
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, domain.NewValidationError("offset", "must be a non-negative integer")
		}
	}
	return limit, offset, nil
}
