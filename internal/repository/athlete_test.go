package repository

import (
	"context"
	"path/filepath"
	"testing"

	"grappling-rank/internal/database"
	"grappling-rank/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAthleteRepo(t *testing.T) *AthleteRepository {
	t.Helper()
	log := zerolog.Nop()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAthleteRepository(db, log)
}

func TestAthleteCreateAssignsSlugs(t *testing.T) {
	repo := newAthleteRepo(t)
	ctx := context.Background()

	first := &domain.Athlete{Name: "João Miguel Rocha"}
	require.NoError(t, repo.Create(ctx, first))
	assert.Equal(t, "joao-rocha", first.Slug)
	assert.Equal(t, "joao miguel rocha", first.NormalizedName)

	t.Run("collision falls back to middle names", func(t *testing.T) {
		second := &domain.Athlete{Name: "Joao Pedro Rocha"}
		require.NoError(t, repo.Create(ctx, second))
		assert.Equal(t, "joao-pedro-rocha", second.Slug)
	})

	t.Run("exhausted candidates get a number", func(t *testing.T) {
		third := &domain.Athlete{Name: "Joao Rocha"}
		require.NoError(t, repo.Create(ctx, third))
		assert.Equal(t, "joao-rocha-2", third.Slug)
	})

	t.Run("lookup by normalized name", func(t *testing.T) {
		id, err := repo.IDByNormalizedName(ctx, "joao miguel rocha")
		require.NoError(t, err)
		assert.Equal(t, first.ID, id)
	})
}
