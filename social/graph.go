package social

import (
	"fmt"
	"slices"
	"socialsim/db"

	"go.uber.org/zap"
)

// Graph maintains the per-account following sets.
type Graph struct {
	db  *db.DB
	log *zap.Logger
}

func NewGraph(database *db.DB, log *zap.Logger) *Graph {
	if log == nil {
		log = zap.NewNop()
	}
	return &Graph{db: database, log: log}
}

// Follow adds target to follower's following set. Following an account
// twice is a no-op.
func (g *Graph) Follow(follower, target string) error {
	if follower == target {
		return fmt.Errorf("follow %q: %w", target, ErrSelfReference)
	}

	acc, err := g.db.GetUser(follower)
	if err != nil {
		return err
	}
	if _, err := g.db.GetUser(target); err != nil {
		return err
	}

	if acc.Follows(target) {
		return nil
	}
	acc.Following = append(acc.Following, target)
	g.log.Debug("follow", zap.String("follower", follower), zap.String("target", target))
	return nil
}

// Unfollow removes target from follower's following set if present.
func (g *Graph) Unfollow(follower, target string) error {
	if follower == target {
		return fmt.Errorf("unfollow %q: %w", target, ErrSelfReference)
	}

	acc, err := g.db.GetUser(follower)
	if err != nil {
		return err
	}

	for i, login := range acc.Following {
		if login == target {
			acc.Following = slices.Delete(acc.Following, i, i+1)
			g.log.Debug("unfollow", zap.String("follower", follower), zap.String("target", target))
			break
		}
	}
	return nil
}

func (g *Graph) IsFollowing(a, b string) bool {
	acc, err := g.db.GetUser(a)
	if err != nil {
		return false
	}
	return acc.Follows(b)
}

// Following returns the accounts login follows, in the order they were added.
func (g *Graph) Following(login string) ([]string, error) {
	acc, err := g.db.GetUser(login)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), acc.Following...), nil
}
