package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/wikiquiz/internal/models"
)

func TestMemoryLatestQuizIgnoresClockSteps(t *testing.T) {
	ctx := context.Background()
	ms := NewMemory()

	// Each call steps the clock an hour backwards.
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ms.now = func() time.Time {
		clock = clock.Add(-time.Hour)
		return clock
	}

	article := &models.Article{URL: "https://en.wikipedia.org/wiki/Clock", Title: "Clock"}
	first := &models.Quiz{}
	require.NoError(t, ms.SaveQuiz(ctx, article, first))
	second := &models.Quiz{}
	require.NoError(t, ms.SaveQuiz(ctx, article, second))
	require.True(t, second.CreatedAt.Before(first.CreatedAt))

	latest, err := ms.LatestQuiz(ctx, article.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	summaries, err := ms.ListQuizzes(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, second.ID, summaries[0].ID)
}
