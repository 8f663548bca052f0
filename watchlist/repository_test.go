package watchlist

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/watcharr/media"
)

func newTestRepository(t *testing.T, opts ...Option) *Repository {
	t.Helper()

	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return NewRepository(db, zerolog.Nop(), opts...)
}

func strPtr(s string) *string { return &s }

func TestRepository_Add(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	entry, err := repo.Add(ctx, AddRequest{
		ExternalID:      1399,
		MediaType:       media.TypeShow,
		Notes:           strPtr("dragons"),
		SelectedSeasons: []int{3, 1, 3},
	})
	require.NoError(t, err)

	assert.NotZero(t, entry.ID)
	assert.Equal(t, int64(1399), entry.ExternalID)
	assert.Equal(t, media.TypeShow, entry.MediaType)
	assert.Equal(t, "dragons", *entry.Notes)
	assert.Equal(t, []int{1, 3}, entry.SelectedSeasons)
	assert.Equal(t, media.StateUnknown, entry.Status.State)
	assert.False(t, entry.AddedAt.IsZero())

	// Same external id with a different media type is a different entry
	movie, err := repo.Add(ctx, AddRequest{ExternalID: 1399, MediaType: media.TypeMovie})
	require.NoError(t, err)
	assert.NotEqual(t, entry.ID, movie.ID)
}

func TestRepository_AddValidation(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	tests := []struct {
		name    string
		req     AddRequest
		wantErr error
	}{
		{
			name:    "zero id",
			req:     AddRequest{ExternalID: 0, MediaType: media.TypeMovie},
			wantErr: media.ErrInvalidExternalID,
		},
		{
			name:    "unknown media type",
			req:     AddRequest{ExternalID: 1, MediaType: "album"},
			wantErr: media.ErrInvalidMediaType,
		},
		{
			name:    "seasons on a movie",
			req:     AddRequest{ExternalID: 1, MediaType: media.TypeMovie, SelectedSeasons: []int{1}},
			wantErr: media.ErrInvalidSeason,
		},
		{
			name:    "negative season",
			req:     AddRequest{ExternalID: 1, MediaType: media.TypeShow, SelectedSeasons: []int{-1}},
			wantErr: media.ErrInvalidSeason,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Add(ctx, tt.req)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRepository_AddDuplicate(t *testing.T) {
	ctx := context.Background()

	t.Run("reject without update flag", func(t *testing.T) {
		repo := newTestRepository(t)

		_, err := repo.Add(ctx, AddRequest{ExternalID: 603, MediaType: media.TypeMovie})
		require.NoError(t, err)

		_, err = repo.Add(ctx, AddRequest{ExternalID: 603, MediaType: media.TypeMovie, Notes: strPtr("again")})
		require.ErrorIs(t, err, media.ErrDuplicate)

		entries, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
		assert.Nil(t, entries[0].Notes)
	})

	t.Run("update flag overwrites", func(t *testing.T) {
		repo := newTestRepository(t)

		first, err := repo.Add(ctx, AddRequest{
			ExternalID:      1399,
			MediaType:       media.TypeShow,
			Notes:           strPtr("first"),
			SelectedSeasons: []int{1},
		})
		require.NoError(t, err)

		second, err := repo.Add(ctx, AddRequest{
			ExternalID:      1399,
			MediaType:       media.TypeShow,
			Notes:           strPtr("second"),
			SelectedSeasons: []int{2, 3},
			Update:          true,
		})
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "second", *second.Notes)
		assert.Equal(t, []int{2, 3}, second.SelectedSeasons)
	})

	t.Run("upsert policy", func(t *testing.T) {
		repo := newTestRepository(t, WithDuplicatePolicy(DuplicateUpsert))

		_, err := repo.Add(ctx, AddRequest{ExternalID: 603, MediaType: media.TypeMovie})
		require.NoError(t, err)

		entry, err := repo.Add(ctx, AddRequest{ExternalID: 603, MediaType: media.TypeMovie, Notes: strPtr("upserted")})
		require.NoError(t, err)
		assert.Equal(t, "upserted", *entry.Notes)
	})

	t.Run("keep policy", func(t *testing.T) {
		repo := newTestRepository(t, WithDuplicatePolicy(DuplicateKeep))

		_, err := repo.Add(ctx, AddRequest{ExternalID: 603, MediaType: media.TypeMovie, Notes: strPtr("original")})
		require.NoError(t, err)

		entry, err := repo.Add(ctx, AddRequest{ExternalID: 603, MediaType: media.TypeMovie, Notes: strPtr("ignored")})
		require.NoError(t, err)
		assert.Equal(t, "original", *entry.Notes)
	})
}

func TestRepository_Remove(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	entry, err := repo.Add(ctx, AddRequest{ExternalID: 603, MediaType: media.TypeMovie})
	require.NoError(t, err)

	require.NoError(t, repo.Remove(ctx, entry.ID))

	err = repo.Remove(ctx, entry.ID)
	require.ErrorIs(t, err, media.ErrNotFound, "removal is not idempotent")

	_, err = repo.Get(ctx, entry.ID)
	require.ErrorIs(t, err, media.ErrNotFound)
}

func TestRepository_RemoveBatch(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	a, err := repo.Add(ctx, AddRequest{ExternalID: 100, MediaType: media.TypeMovie})
	require.NoError(t, err)
	b, err := repo.Add(ctx, AddRequest{ExternalID: 101, MediaType: media.TypeMovie})
	require.NoError(t, err)
	c, err := repo.Add(ctx, AddRequest{ExternalID: 102, MediaType: media.TypeMovie})
	require.NoError(t, err)
	other, err := repo.Add(ctx, AddRequest{ExternalID: 103, MediaType: media.TypeShow})
	require.NoError(t, err)

	require.NoError(t, repo.Remove(ctx, b.ID))

	result := repo.RemoveBatch(ctx, []uint{a.ID, b.ID, c.ID})
	assert.Equal(t, 3, result.Requested)
	assert.Equal(t, 2, result.Deleted)
	assert.Equal(t, []uint{b.ID}, result.Missing)
	assert.Empty(t, result.Failed)

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, other.ID, entries[0].ID)
}

func TestRepository_ListInsertionOrder(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	ids := []int64{500, 3, 42, 7}
	for _, id := range ids {
		_, err := repo.Add(ctx, AddRequest{ExternalID: id, MediaType: media.TypeMovie})
		require.NoError(t, err)
	}

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, len(ids))
	for i, entry := range entries {
		assert.Equal(t, ids[i], entry.ExternalID)
	}
}

func TestRepository_UpdateSeasons(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	_, err := repo.UpdateSeasons(ctx, 1399, []int{1})
	require.ErrorIs(t, err, media.ErrNotFound)

	_, err = repo.Add(ctx, AddRequest{ExternalID: 1399, MediaType: media.TypeShow})
	require.NoError(t, err)

	entry, err := repo.UpdateSeasons(ctx, 1399, []int{4, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, entry.SelectedSeasons)

	stored, err := repo.Find(ctx, entry.Key())
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, stored.SelectedSeasons)
}

func TestRepository_SetStatus(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	entry, err := repo.Add(ctx, AddRequest{ExternalID: 603, MediaType: media.TypeMovie})
	require.NoError(t, err)

	backendID := int64(77)
	now := time.Now().UTC().Truncate(time.Second)
	updated, err := repo.SetStatus(ctx, entry.Key(), media.LibraryStatus{
		State:     media.StateInLibrary,
		BackendID: &backendID,
		Complete:  true,
		CheckedAt: &now,
	})
	require.NoError(t, err)

	assert.Equal(t, media.StateInLibrary, updated.Status.State)
	require.NotNil(t, updated.Status.BackendID)
	assert.Equal(t, backendID, *updated.Status.BackendID)

	stored, err := repo.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, stored.Status.InLibrary())
	assert.True(t, stored.Status.Complete)

	_, err = repo.SetStatus(ctx, media.Key{ExternalID: 1, MediaType: media.TypeShow}, media.LibraryStatus{State: media.StateUnknown})
	require.ErrorIs(t, err, media.ErrNotFound)
}

func TestRepository_ConcurrentStatusUpdates(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	var keys []media.Key
	for i := int64(1); i <= 10; i++ {
		entry, err := repo.Add(ctx, AddRequest{ExternalID: i, MediaType: media.TypeMovie})
		require.NoError(t, err)
		keys = append(keys, entry.Key())
	}

	var wg sync.WaitGroup
	for _, key := range keys {
		for range 3 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id := key.ExternalID * 10
				_, err := repo.SetStatus(ctx, key, media.LibraryStatus{State: media.StateInLibrary, BackendID: &id})
				assert.NoError(t, err)
			}()
		}
	}
	wg.Wait()

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.Equal(t, media.StateInLibrary, entry.Status.State)
		assert.Equal(t, entry.ExternalID*10, *entry.Status.BackendID)
	}
	assert.Zero(t, repo.locks.size(), "idle locks are released")
}

func TestParseDuplicatePolicy(t *testing.T) {
	policy, err := ParseDuplicatePolicy("")
	require.NoError(t, err)
	assert.Equal(t, DuplicateReject, policy)

	policy, err = ParseDuplicatePolicy("keep")
	require.NoError(t, err)
	assert.Equal(t, DuplicateKeep, policy)

	_, err = ParseDuplicatePolicy("merge")
	require.Error(t, err)
}
