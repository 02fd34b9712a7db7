package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/sqlinline"
)

func userRow(tier string, tokens int) fakeRow {
	now := time.Now()
	return row("user-1", "sub-1", "a@example.com", "Ana", "", "en", "user", tier, tokens, now, now)
}

func TestUpsertGoogleUserReportsInsert(t *testing.T) {
	now := time.Now()
	db := &fakeDB{rows: []fakeRow{row("user-1", "sub-1", "a@example.com", "Ana", "", "en", "user", "free", 100, now, now, true)}}
	u, created, err := NewUserRepository(db).UpsertGoogleUser(context.Background(), &domain.User{GoogleSub: "sub-1", Email: " A@Example.com "}, domain.TierFree)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.TierFree, u.Tier)
	assert.Equal(t, 100, u.AvailableTokens)
}

func TestUpsertGoogleUserRequiresEmail(t *testing.T) {
	_, _, err := NewUserRepository(&fakeDB{}).UpsertGoogleUser(context.Background(), &domain.User{}, domain.TierFree)
	assert.True(t, domain.IsValidation(err))
}

func TestGetUserNotFound(t *testing.T) {
	_, err := NewUserRepository(&fakeDB{}).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGrantTokensWritesLedger(t *testing.T) {
	db := &fakeDB{rows: []fakeRow{row("basic", 10), userRow("basic", 110)}}
	u, err := NewUserRepository(db).GrantTokens(context.Background(), "user-1", 100, "manual top-up")
	require.NoError(t, err)
	assert.Equal(t, 110, u.AvailableTokens)
	require.Equal(t, []string{sqlinline.QUpdateUserBalance, sqlinline.QInsertTokenTransaction}, db.execQueries())
	assert.Equal(t, string(domain.TxTopUp), db.execs[1].args[2])
	assert.Equal(t, 110, db.execs[1].args[5])
}

func TestGrantTokensRejectsNonPositive(t *testing.T) {
	_, err := NewUserRepository(&fakeDB{}).GrantTokens(context.Background(), "user-1", 0, "")
	assert.True(t, domain.IsValidation(err))
}

func TestRefundUnlimitedOnlyRecordsLedger(t *testing.T) {
	db := &fakeDB{rows: []fakeRow{row("ultimate", -1)}}
	require.NoError(t, NewUserRepository(db).Refund(context.Background(), "user-1", "job-1", 50))
	require.Equal(t, []string{sqlinline.QInsertTokenTransaction}, db.execQueries())
	assert.Equal(t, string(domain.TxRefund), db.execs[0].args[2])
}

func TestRefundMeteredCreditsBalance(t *testing.T) {
	db := &fakeDB{rows: []fakeRow{row("free", 50)}}
	require.NoError(t, NewUserRepository(db).Refund(context.Background(), "user-1", "job-1", 50))
	require.Equal(t, []string{sqlinline.QUpdateUserBalance, sqlinline.QInsertTokenTransaction}, db.execQueries())
	assert.Equal(t, 100, db.execs[0].args[1])
}

func TestSetTierResetsAllowance(t *testing.T) {
	db := &fakeDB{rows: []fakeRow{row("free", 20), userRow("pro", 1000)}}
	u, err := NewUserRepository(db).SetTier(context.Background(), "user-1", domain.TierPro)
	require.NoError(t, err)
	assert.Equal(t, domain.TierPro, u.Tier)
	require.Len(t, db.execs, 1)
	assert.Equal(t, 980, db.execs[0].args[3])
}
