package stats

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bottlespin/bottlespin-backend/pkg/db/models"
	"github.com/bottlespin/bottlespin-backend/pkg/enums"
)

func setupStatsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  phone TEXT,
  role TEXT NOT NULL DEFAULT 'member',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	bottleReturns := `
CREATE TABLE IF NOT EXISTS bottle_returns (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  count INTEGER NOT NULL DEFAULT 1,
  kind TEXT NOT NULL DEFAULT 'scanned',
  value NUMERIC NOT NULL,
  code_id TEXT,
  size TEXT,
  status TEXT NOT NULL DEFAULT 'completed',
  created_at DATETIME
);`
	userStats := `
CREATE TABLE IF NOT EXISTS user_stats (
  user_id TEXT PRIMARY KEY,
  bottles_returned_total INTEGER NOT NULL DEFAULT 0,
  earned_total NUMERIC NOT NULL DEFAULT 0,
  rewards_total NUMERIC NOT NULL DEFAULT 0,
  withdrawals_total NUMERIC NOT NULL DEFAULT 0,
  balance NUMERIC NOT NULL DEFAULT 0,
  recycling_rate INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
);`
	leaderboard := `
CREATE TABLE IF NOT EXISTS leaderboard_entries (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  rank INTEGER NOT NULL,
  total_bottles INTEGER NOT NULL DEFAULT 0,
  first_return_at DATETIME NOT NULL,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(users).Error)
	require.NoError(t, db.Exec(bottleReturns).Error)
	require.NoError(t, db.Exec(userStats).Error)
	require.NoError(t, db.Exec(leaderboard).Error)
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()

	user := &models.User{
		ID:    uuid.New(),
		Name:  name,
		Email: name + "@example.com",
		Role:  enums.UserRoleMember,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedReturn(t *testing.T, db *gorm.DB, user *models.User, count int, created time.Time) {
	t.Helper()

	ret := &models.BottleReturn{
		ID:        uuid.New(),
		UserID:    user.ID,
		Count:     count,
		Kind:      enums.ReturnKindScanned,
		Value:     decimal.NewFromInt(int64(count)),
		Status:    "completed",
		CreatedAt: created,
	}
	require.NoError(t, db.Create(ret).Error)
}

func TestRepository_AggregateTotalsOrdering(t *testing.T) {
	db := setupStatsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Now().Add(-24 * time.Hour).UTC().Truncate(time.Second)
	heavy := seedUser(t, db, "heavy")
	early := seedUser(t, db, "early")
	late := seedUser(t, db, "late")

	seedReturn(t, db, heavy, 5, base.Add(3*time.Hour))
	seedReturn(t, db, heavy, 5, base.Add(4*time.Hour))
	// early and late tie on totals; early's first return breaks the tie
	seedReturn(t, db, early, 4, base)
	seedReturn(t, db, late, 4, base.Add(time.Hour))

	totals, err := repo.AggregateTotals(ctx)
	require.NoError(t, err)
	require.Len(t, totals, 3)

	assert.Equal(t, heavy.ID, totals[0].UserID)
	assert.Equal(t, 10, totals[0].TotalBottles)
	assert.Equal(t, early.ID, totals[1].UserID)
	assert.Equal(t, late.ID, totals[2].UserID)
}

func TestRepository_IncrementForCredit(t *testing.T) {
	db := setupStatsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	user := seedUser(t, db, "ana")

	// No row yet: increments report a miss instead of inventing rows.
	updated, err := repo.IncrementForCredit(ctx, user.ID, 1, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.False(t, updated)

	require.NoError(t, repo.SaveStats(ctx, &models.UserStats{
		UserID:               user.ID,
		BottlesReturnedTotal: 2,
		EarnedTotal:          decimal.NewFromInt(2),
		Balance:              decimal.NewFromInt(2),
		RecyclingRate:        20,
	}))

	updated, err = repo.IncrementForCredit(ctx, user.ID, 3, decimal.NewFromFloat(1.50))
	require.NoError(t, err)
	assert.True(t, updated)

	stats, err := repo.GetStats(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.BottlesReturnedTotal)
	assert.True(t, stats.EarnedTotal.Equal(decimal.NewFromFloat(3.50)))
	assert.True(t, stats.Balance.Equal(decimal.NewFromFloat(3.50)))
	assert.Equal(t, 50, stats.RecyclingRate)
}

func TestRepository_IncrementForCreditCapsRecyclingRate(t *testing.T) {
	db := setupStatsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	user := seedUser(t, db, "ana")

	require.NoError(t, repo.SaveStats(ctx, &models.UserStats{
		UserID:               user.ID,
		BottlesReturnedTotal: 9,
		RecyclingRate:        90,
	}))

	_, err := repo.IncrementForCredit(ctx, user.ID, 5, decimal.NewFromInt(5))
	require.NoError(t, err)

	stats, err := repo.GetStats(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, stats.RecyclingRate)
}

func TestRepository_DebitIfCovered(t *testing.T) {
	db := setupStatsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	user := seedUser(t, db, "ana")

	require.NoError(t, repo.SaveStats(ctx, &models.UserStats{
		UserID:      user.ID,
		EarnedTotal: decimal.NewFromInt(10),
		Balance:     decimal.NewFromInt(10),
	}))

	debited, err := repo.DebitIfCovered(ctx, user.ID, decimal.NewFromInt(4))
	require.NoError(t, err)
	assert.True(t, debited)

	stats, err := repo.GetStats(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stats.WithdrawalsTotal.Equal(decimal.NewFromInt(4)))
	assert.True(t, stats.Balance.Equal(decimal.NewFromInt(6)))
}

func TestRepository_DebitIfCoveredRefusesOverdraft(t *testing.T) {
	db := setupStatsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	user := seedUser(t, db, "ana")

	require.NoError(t, repo.SaveStats(ctx, &models.UserStats{
		UserID:  user.ID,
		Balance: decimal.NewFromInt(3),
	}))

	debited, err := repo.DebitIfCovered(ctx, user.ID, decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.False(t, debited)

	stats, err := repo.GetStats(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stats.Balance.Equal(decimal.NewFromInt(3)))
	assert.True(t, stats.WithdrawalsTotal.IsZero())
}

func TestRepository_DebitIfCoveredSerializesFullDrains(t *testing.T) {
	db := setupStatsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	user := seedUser(t, db, "ana")

	require.NoError(t, repo.SaveStats(ctx, &models.UserStats{
		UserID:  user.ID,
		Balance: decimal.NewFromInt(10),
	}))

	// Two full-balance withdrawals: the first drains the wallet, the second
	// re-evaluates the guard against the decremented row and must refuse.
	debited, err := repo.DebitIfCovered(ctx, user.ID, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, debited)

	debited, err = repo.DebitIfCovered(ctx, user.ID, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.False(t, debited)

	stats, err := repo.GetStats(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stats.Balance.IsZero(), "balance must never go negative, got %s", stats.Balance)
	assert.True(t, stats.WithdrawalsTotal.Equal(decimal.NewFromInt(10)))
}

func TestRepository_UpsertLeaderboardEntryReplacesRank(t *testing.T) {
	db := setupStatsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	user := seedUser(t, db, "ana")
	first := time.Now().Add(-time.Hour).UTC()

	require.NoError(t, repo.UpsertLeaderboardEntry(ctx, &models.LeaderboardEntry{
		ID:            uuid.New(),
		UserID:        user.ID,
		Rank:          3,
		TotalBottles:  4,
		FirstReturnAt: first,
	}))
	require.NoError(t, repo.UpsertLeaderboardEntry(ctx, &models.LeaderboardEntry{
		ID:            uuid.New(),
		UserID:        user.ID,
		Rank:          1,
		TotalBottles:  9,
		FirstReturnAt: first,
	}))

	rank, err := repo.GetRank(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rank)

	var count int64
	require.NoError(t, db.Model(&models.LeaderboardEntry{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRepository_GetRankDefaultsToZero(t *testing.T) {
	db := setupStatsTestDB(t)
	repo := NewRepository(db)

	rank, err := repo.GetRank(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 0, rank)
}

func TestRepository_ListTopJoinsIdentity(t *testing.T) {
	db := setupStatsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	ana := seedUser(t, db, "ana")
	ben := seedUser(t, db, "ben")
	first := time.Now().UTC()

	require.NoError(t, repo.UpsertLeaderboardEntry(ctx, &models.LeaderboardEntry{
		ID: uuid.New(), UserID: ben.ID, Rank: 2, TotalBottles: 3, FirstReturnAt: first,
	}))
	require.NoError(t, repo.UpsertLeaderboardEntry(ctx, &models.LeaderboardEntry{
		ID: uuid.New(), UserID: ana.ID, Rank: 1, TotalBottles: 7, FirstReturnAt: first,
	}))

	top, err := repo.ListTop(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "ana", top[0].Name)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, "ben", top[1].Name)
}

func TestRepository_ListUserIDsMissingStats(t *testing.T) {
	db := setupStatsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	covered := seedUser(t, db, "covered")
	missing := seedUser(t, db, "missing")
	now := time.Now()

	seedReturn(t, db, covered, 1, now)
	seedReturn(t, db, missing, 1, now)
	require.NoError(t, repo.SaveStats(ctx, &models.UserStats{UserID: covered.ID, BottlesReturnedTotal: 1}))

	ids, err := repo.ListUserIDsMissingStats(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, missing.ID, ids[0])
}
