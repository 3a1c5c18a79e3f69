package evaluation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLStore_Create(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	t.Run("successfully create evaluation", func(t *testing.T) {
		e, err := New(testConfig())
		require.NoError(t, err)

		require.NoError(t, store.Create(ctx, e))
		assert.NotEqual(t, uuid.Nil, e.ID)
		assert.Equal(t, StatusPending, e.Status)
	})

	t.Run("invalid start url returns error", func(t *testing.T) {
		e := &Evaluation{
			WebsiteName: "example",
			StartURL:    "notaurl",
			Status:      StatusPending,
		}
		err := store.Create(ctx, e)
		assert.ErrorIs(t, err, ErrInvalidStartURL)
	})

	t.Run("missing website name returns error", func(t *testing.T) {
		e := &Evaluation{
			StartURL: "https://example.com",
			Status:   StatusPending,
		}
		err := store.Create(ctx, e)
		assert.ErrorIs(t, err, ErrInvalidWebsiteName)
	})
}

func TestMySQLStore_GetByID(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	t.Run("retrieve existing evaluation", func(t *testing.T) {
		e, err := New(testConfig())
		require.NoError(t, err)
		require.NoError(t, store.Create(ctx, e))

		retrieved, err := store.GetByID(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, e.ID, retrieved.ID)
		assert.Equal(t, e.WebsiteName, retrieved.WebsiteName)
		assert.Equal(t, e.Config.StartURL, retrieved.Config.StartURL)
		assert.True(t, retrieved.Config.AutoFillForms)
	})

	t.Run("non-existent evaluation returns error", func(t *testing.T) {
		_, err := store.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrEvaluationNotFound)
	})
}

func TestMySQLStore_ListAndCount(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		e, err := New(testConfig())
		require.NoError(t, err)
		require.NoError(t, store.Create(ctx, e))
	}

	listed, err := store.List(ctx, 3, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 3)

	rest, err := store.List(ctx, 10, 3)
	require.NoError(t, err)
	assert.Len(t, rest, 2)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestMySQLStore_Update(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	e, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, e))

	t.Run("update status", func(t *testing.T) {
		require.NoError(t, store.Update(ctx, e.ID, SetStatus(StatusRunning)))

		retrieved, err := store.GetByID(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusRunning, retrieved.Status)
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		err := store.Update(ctx, e.ID, SetStatus(Status("bogus")))
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("non-existent evaluation returns error", func(t *testing.T) {
		err := store.Update(ctx, uuid.New(), SetStatus(StatusRunning))
		assert.ErrorIs(t, err, ErrEvaluationNotFound)
	})
}

func TestMySQLStore_ClaimNextPending(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	t.Run("empty queue", func(t *testing.T) {
		_, err := store.ClaimNextPending(ctx)
		assert.ErrorIs(t, err, ErrNoPendingRuns)
	})

	t.Run("claims oldest first and drains", func(t *testing.T) {
		first, err := New(testConfig())
		require.NoError(t, err)
		require.NoError(t, store.Create(ctx, first))

		second, err := New(testConfig())
		require.NoError(t, err)
		require.NoError(t, store.Create(ctx, second))

		claimed, err := store.ClaimNextPending(ctx)
		require.NoError(t, err)
		assert.Equal(t, first.ID, claimed.ID)
		assert.Equal(t, StatusRunning, claimed.Status)
		require.NotNil(t, claimed.StartedAt)

		claimed, err = store.ClaimNextPending(ctx)
		require.NoError(t, err)
		assert.Equal(t, second.ID, claimed.ID)

		_, err = store.ClaimNextPending(ctx)
		assert.ErrorIs(t, err, ErrNoPendingRuns)
	})
}

func TestMySQLStore_Save(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	e, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, e))

	claimed, err := store.ClaimNextPending(ctx)
	require.NoError(t, err)

	claimed.AppendStep(Step{URL: "https://example.com/quiz", PageTitle: "Quiz"})
	claimed.AppendStep(Step{URL: "https://example.com/done", Errors: []string{"screenshot failed"}})
	require.NoError(t, claimed.Finalize(ReasonEndOfFlow))

	require.NoError(t, store.Save(ctx, claimed))

	retrieved, err := store.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, retrieved.Status)
	assert.Equal(t, ReasonEndOfFlow, retrieved.TerminationReason)
	require.Len(t, retrieved.Steps, 2)
	assert.Equal(t, "Quiz", retrieved.Steps[0].PageTitle)
	assert.Equal(t, 1, retrieved.CompletedSteps)
	assert.Equal(t, 1, retrieved.FailedSteps)
}
