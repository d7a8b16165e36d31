package social

import (
	"testing"
	"time"

	"socialsim/db"
	"socialsim/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePost(t *testing.T) {
	w := newWorld(t, "alice")

	post, err := w.content.CreatePost("alice", models.KindImage, "cat.png", true)
	require.NoError(t, err)
	assert.NotEmpty(t, post.ID)
	assert.Equal(t, "alice", post.Author)
	assert.Equal(t, models.KindImage, post.Kind)
	assert.Equal(t, "cat.png", post.Payload)
	assert.True(t, post.Public)
	assert.False(t, post.Timestamp.IsZero())

	found, err := w.content.Post(post.ID)
	require.NoError(t, err)
	assert.Same(t, post, found)

	_, err = w.content.CreatePost("ghost", models.KindText, "x", true)
	assert.ErrorIs(t, err, db.ErrNotFound)

	_, err = w.content.CreatePost("alice", models.Kind(42), "x", true)
	assert.Error(t, err)
}

func TestEditPostRoundTrip(t *testing.T) {
	w := newWorld(t, "alice", "bob")
	post, err := w.content.CreatePost("alice", models.KindVideo, "old.mp4", true)
	require.NoError(t, err)
	require.NoError(t, w.content.AddComment("bob", post.ID, "nice"))
	require.NoError(t, w.content.GrantAccess("alice", post.ID, "bob"))
	before := *post

	require.NoError(t, w.content.EditPost("alice", post.ID, "new.mp4", false))

	edited, err := w.content.Post(post.ID)
	require.NoError(t, err)
	assert.Equal(t, "new.mp4", edited.Payload)
	assert.False(t, edited.Public)
	assert.Equal(t, before.Author, edited.Author)
	assert.Equal(t, before.Kind, edited.Kind)
	assert.Equal(t, before.Timestamp, edited.Timestamp)
	assert.Equal(t, before.Comments, edited.Comments)
	assert.Equal(t, before.AccessList, edited.AccessList)
}

func TestEditPostPermission(t *testing.T) {
	w := newWorld(t, "alice", "bob")
	post, err := w.content.CreatePost("alice", models.KindText, "mine", true)
	require.NoError(t, err)

	assert.ErrorIs(t, w.content.EditPost("bob", post.ID, "hijacked", false), ErrPermission)
	assert.Equal(t, "mine", post.Payload)
	assert.True(t, post.Public)

	assert.ErrorIs(t, w.content.EditPost("alice", "missing", "x", true), ErrPostNotFound)
}

func TestAddCommentHasNoVisibilityGate(t *testing.T) {
	w := newWorld(t, "alice", "bob", "carol")
	post, err := w.content.CreatePost("alice", models.KindText, "private", false)
	require.NoError(t, err)

	require.NoError(t, w.content.AddComment("bob", post.ID, "first"))
	require.NoError(t, w.content.AddComment("carol", post.ID, "second"))

	comments, err := w.content.Comments(post.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Comment{
		{Author: "bob", Text: "first"},
		{Author: "carol", Text: "second"},
	}, comments)

	assert.ErrorIs(t, w.content.AddComment("ghost", post.ID, "boo"), db.ErrNotFound)
}

func TestGrantAccess(t *testing.T) {
	w := newWorld(t, "alice", "bob", "carol")
	post, err := w.content.CreatePost("alice", models.KindText, "private", false)
	require.NoError(t, err)

	require.NoError(t, w.content.GrantAccess("alice", post.ID, "bob"))
	require.NoError(t, w.content.GrantAccess("alice", post.ID, "bob"))
	require.NoError(t, w.content.GrantAccess("alice", post.ID, "carol"))

	list, err := w.content.AccessList(post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, list)

	assert.ErrorIs(t, w.content.GrantAccess("bob", post.ID, "carol"), ErrPermission)
	assert.ErrorIs(t, w.content.GrantAccess("alice", post.ID, "ghost"), db.ErrNotFound)
}

func TestOwnPostsNewestFirst(t *testing.T) {
	w := newWorld(t, "alice")
	for _, payload := range []string{"one", "two", "three"} {
		_, err := w.content.CreatePost("alice", models.KindText, payload, true)
		require.NoError(t, err)
	}

	posts, err := w.content.OwnPosts("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"three", "two", "one"}, payloads(posts))

	// The authored list itself keeps creation order.
	acc, err := w.db.GetUser("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, payloads(acc.Posts))
}

func TestSortNewestFirstTieBreak(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	posts := []*models.Post{
		{Seq: 3, Payload: "c", Timestamp: ts},
		{Seq: 1, Payload: "a", Timestamp: ts},
		{Seq: 4, Payload: "newest", Timestamp: ts.Add(time.Second)},
		{Seq: 2, Payload: "b", Timestamp: ts},
	}

	sortNewestFirst(posts)
	assert.Equal(t, []string{"newest", "a", "b", "c"}, payloads(posts))
}
