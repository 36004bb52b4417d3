package repository

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viraj-gavade/Thriftify-sub000/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMemoryUserRepo(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryUserRepo()

	u := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "h"}
	require.NoError(t, r.Create(ctx, u))
	assert.False(t, u.ID.IsZero())

	assert.ErrorIs(t, r.Create(ctx, &models.User{Username: "alice", Email: "other@example.com"}), ErrDuplicate)
	assert.ErrorIs(t, r.Create(ctx, &models.User{Username: "other", Email: "alice@example.com"}), ErrDuplicate)

	got, err := r.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = r.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	listing := primitive.NewObjectID()
	require.NoError(t, r.SetBookmark(ctx, u.ID, listing, true))
	require.NoError(t, r.SetBookmark(ctx, u.ID, listing, true))
	got, _ = r.FindByID(ctx, u.ID)
	assert.Equal(t, []primitive.ObjectID{listing}, got.Bookmarks)

	// mutating the copy must not leak into the store
	got.Bookmarks[0] = primitive.NewObjectID()
	again, _ := r.FindByID(ctx, u.ID)
	assert.Equal(t, listing, again.Bookmarks[0])

	require.NoError(t, r.SetBookmark(ctx, u.ID, listing, false))
	got, _ = r.FindByID(ctx, u.ID)
	assert.Empty(t, got.Bookmarks)

	r.Delete(u.ID)
	_, err = r.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryListingRepoList(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryListingRepo()
	owner := primitive.NewObjectID()

	var ids []primitive.ObjectID
	for _, cat := range []models.Category{models.CategoryBooks, models.CategoryBooks, models.CategoryToys} {
		l := &models.Listing{Title: string(cat), Category: cat, Owner: owner}
		require.NoError(t, r.Create(ctx, l))
		ids = append(ids, l.ID)
	}
	_, err := r.MarkSold(ctx, ids[0])
	require.NoError(t, err)

	books, total, err := r.List(ctx, ListingFilter{Category: "books"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, books, 1)

	all, total, err := r.List(ctx, ListingFilter{IncludeSold: true, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 2)

	title := "renamed"
	updated, err := r.Update(ctx, ids[2], ListingUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)

	past, total, err := r.List(ctx, ListingFilter{IncludeSold: true, Skip: -5, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, past, 2, "a negative skip starts at the beginning")

	require.NoError(t, r.Delete(ctx, ids[2]))
	assert.ErrorIs(t, r.Delete(ctx, ids[2]), ErrNotFound)
}

func TestMemoryMessageRepoOutOfRangeSkip(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryMessageRepo()
	conv := primitive.NewObjectID()
	require.NoError(t, r.Create(ctx, &models.Message{ConversationID: conv, Sender: primitive.NewObjectID(), Content: "hi"}))

	for _, skip := range []int64{-1, 1, math.MaxInt64} {
		page, err := r.ListRecent(ctx, conv, skip, 10)
		require.NoError(t, err, "skip %d", skip)
		if skip < 0 {
			assert.Len(t, page, 1)
		} else {
			assert.Empty(t, page)
		}
	}
}
