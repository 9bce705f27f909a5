package database

import (
	"context"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquiditymining/internal/config"
	"liquiditymining/internal/models"
	"liquiditymining/internal/service"
)

var _ service.RunStore = (*MemoryStore)(nil)
var _ service.RunStore = (*DB)(nil)

func queuedRun() *models.Run {
	return &models.Run{Status: models.RunStatusQueued, CreatedAt: time.Now().UTC()}
}

func TestMemoryStoreQueueOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first, second := queuedRun(), queuedRun()
	require.NoError(t, store.CreateRun(ctx, first))
	require.NoError(t, store.CreateRun(ctx, second))
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)

	next, err := store.NextQueuedRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, first.ID, next.ID)

	claimed, err := store.MarkRunStarted(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = store.MarkRunStarted(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, claimed, "a run can only be claimed once")

	next, err = store.NextQueuedRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, second.ID, next.ID)
}

func TestMemoryStoreFinishRun(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	run := queuedRun()
	require.NoError(t, store.CreateRun(ctx, run))
	_, err := store.MarkRunStarted(ctx, run.ID)
	require.NoError(t, err)

	pool := "0x1111111111111111111111111111111111111111"
	run.Status = models.RunStatusPassed
	run.StakingPool = &pool
	results := []models.CaseResult{
		{RunID: run.ID, Name: models.CaseEarnRewards, Passed: true, RewardDelta: "42"},
		{RunID: run.ID, Name: models.CaseOwnerIsGovernance, Passed: true},
	}
	require.NoError(t, store.FinishRun(ctx, run, results))

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusPassed, got.Status)
	assert.Equal(t, pool, *got.StakingPool)
	assert.NotNil(t, got.StartedAt)

	cases, err := store.GetCaseResults(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, results, cases)

	next, err := store.NextQueuedRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestMemoryStoreListRuns(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.CreateRun(ctx, queuedRun()))
	}

	runs, err := store.ListRuns(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, int64(5), runs[0].ID)
	assert.Equal(t, int64(4), runs[1].ID)

	runs, err = store.ListRuns(ctx, 10, 4)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(1), runs[0].ID)

	runs, err = store.ListRuns(ctx, 10, 50)
	require.NoError(t, err)
	assert.Empty(t, runs)

	missing, err := store.GetRun(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "lm",
		Password: "secret",
		DBName:   "liquidity_mining",
		SSLMode:  "disable",
	})
	assert.Equal(t, "host=db port=5432 user=lm password=secret dbname=liquidity_mining sslmode=disable", dsn)
}

func TestMigrationsEmbedded(t *testing.T) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	schema, err := migrations.ReadFile("migrations/001_schema.sql")
	require.NoError(t, err)
	assert.Contains(t, string(schema), "CREATE TABLE IF NOT EXISTS runs")
	assert.Contains(t, string(schema), "CREATE TABLE IF NOT EXISTS run_cases")
}
