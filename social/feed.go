package social

import (
	"socialsim/db"
	"socialsim/models"

	"go.uber.org/zap"
)

// Feed builds timelines out of the directory.
type Feed struct {
	db  *db.DB
	log *zap.Logger
}

func NewFeed(database *db.DB, log *zap.Logger) *Feed {
	if log == nil {
		log = zap.NewNop()
	}
	return &Feed{db: database, log: log}
}

// Build returns the viewer's timeline: public or granted posts of followed
// accounts, plus posts of any account that list the viewer on their access
// list. Each post appears once, newest first. The result is a snapshot.
func (f *Feed) Build(viewer string) ([]*models.Post, error) {
	acc, err := f.db.GetUser(viewer)
	if err != nil {
		return nil, err
	}

	seen := make(map[*models.Post]struct{})
	var posts []*models.Post
	collect := func(p *models.Post) {
		if _, ok := seen[p]; ok {
			return
		}
		if !IsVisible(p, acc) {
			return
		}
		seen[p] = struct{}{}
		posts = append(posts, p)
	}

	for _, login := range acc.Following {
		author, err := f.db.GetUser(login)
		if err != nil {
			continue
		}
		for _, p := range author.Posts {
			if p.Public || p.Grants(viewer) {
				collect(p)
			}
		}
	}

	for _, author := range f.db.Users() {
		for _, p := range author.Posts {
			if p.Grants(viewer) {
				collect(p)
			}
		}
	}

	sortNewestFirst(posts)
	f.log.Debug("feed built", zap.String("viewer", viewer), zap.Int("posts", len(posts)))
	return posts, nil
}
