package social

import (
	"testing"
	"time"

	"socialsim/db"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type world struct {
	db      *db.DB
	graph   *Graph
	content *Content
	feed    *Feed
}

// newWorld registers users against a clock that advances one second per
// reading, so creation order and timestamp order agree.
func newWorld(t *testing.T, users ...string) *world {
	t.Helper()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	database := db.New(
		db.WithBcryptCost(bcrypt.MinCost),
		db.WithClock(func() time.Time {
			now = now.Add(time.Second)
			return now
		}),
	)
	for _, u := range users {
		require.NoError(t, database.CreateUser(u, "pw", u, ""))
	}

	return &world{
		db:      database,
		graph:   NewGraph(database, nil),
		content: NewContent(database, nil),
		feed:    NewFeed(database, nil),
	}
}
