package social

import (
	"cmp"
	"fmt"
	"slices"
	"socialsim/db"
	"socialsim/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Content owns post creation and mutation. Posts live on their author's
// account; Content keeps an index so they can be addressed by ID.
type Content struct {
	db    *db.DB
	log   *zap.Logger
	posts map[string]*models.Post
}

func NewContent(database *db.DB, log *zap.Logger) *Content {
	if log == nil {
		log = zap.NewNop()
	}
	return &Content{
		db:    database,
		log:   log,
		posts: make(map[string]*models.Post),
	}
}

func (c *Content) CreatePost(author string, kind models.Kind, payload string, public bool) (*models.Post, error) {
	acc, err := c.db.GetUser(author)
	if err != nil {
		return nil, err
	}
	switch kind {
	case models.KindText, models.KindImage, models.KindVideo:
	default:
		return nil, fmt.Errorf("create post: unsupported %s", kind)
	}

	post := &models.Post{
		ID:        uuid.NewString(),
		Seq:       c.db.NextSeq(),
		Author:    author,
		Kind:      kind,
		Payload:   payload,
		Public:    public,
		Timestamp: c.db.Now(),
	}
	acc.Posts = append(acc.Posts, post)
	c.posts[post.ID] = post

	c.log.Debug("post created",
		zap.String("author", author),
		zap.String("post", post.ID),
		zap.Stringer("kind", kind),
		zap.Bool("public", public))
	return post, nil
}

func (c *Content) Post(id string) (*models.Post, error) {
	post, ok := c.posts[id]
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, ErrPostNotFound)
	}
	return post, nil
}

// EditPost replaces the payload and visibility of a post. The kind never
// changes, so the payload keeps its meaning.
func (c *Content) EditPost(editor, id, payload string, public bool) error {
	post, err := c.Post(id)
	if err != nil {
		return err
	}
	if post.Author != editor {
		return fmt.Errorf("edit %s post %s: %w", post.Kind, id, ErrPermission)
	}

	post.Payload = payload
	post.Public = public
	return nil
}

// AddComment appends a comment. Anyone able to address the post may comment.
func (c *Content) AddComment(commenter, id, text string) error {
	if _, err := c.db.GetUser(commenter); err != nil {
		return err
	}
	post, err := c.Post(id)
	if err != nil {
		return err
	}

	post.Comments = append(post.Comments, models.Comment{Author: commenter, Text: text})
	return nil
}

// GrantAccess adds account to the post's access list. Granting twice is a
// no-op.
func (c *Content) GrantAccess(granter, id, account string) error {
	post, err := c.Post(id)
	if err != nil {
		return err
	}
	if post.Author != granter {
		return fmt.Errorf("grant access on post %s: %w", id, ErrPermission)
	}
	if _, err := c.db.GetUser(account); err != nil {
		return err
	}

	if post.Grants(account) {
		return nil
	}
	post.AccessList = append(post.AccessList, account)
	c.log.Debug("access granted", zap.String("post", id), zap.String("user", account))
	return nil
}

func (c *Content) AccessList(id string) ([]string, error) {
	post, err := c.Post(id)
	if err != nil {
		return nil, err
	}
	return slices.Clone(post.AccessList), nil
}

func (c *Content) Comments(id string) ([]models.Comment, error) {
	post, err := c.Post(id)
	if err != nil {
		return nil, err
	}
	return slices.Clone(post.Comments), nil
}

// OwnPosts returns a snapshot of author's posts, newest first.
func (c *Content) OwnPosts(author string) ([]*models.Post, error) {
	acc, err := c.db.GetUser(author)
	if err != nil {
		return nil, err
	}
	posts := slices.Clone(acc.Posts)
	sortNewestFirst(posts)
	return posts, nil
}

// sortNewestFirst orders posts by timestamp descending; equal timestamps
// keep insertion order.
func sortNewestFirst(posts []*models.Post) {
	slices.SortStableFunc(posts, func(a, b *models.Post) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
}
