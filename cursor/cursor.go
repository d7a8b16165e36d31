// Package cursor implements the browse position used by the feed and the
// own-posts browser.
package cursor

import (
	"errors"
	"socialsim/models"
)

var ErrEmptyList = errors.New("no posts to display")

// Cursor is a position over an ordered post list. It belongs to a browsing
// session; the list itself is never modified.
type Cursor struct {
	posts []*models.Post
	index int
}

func New(posts []*models.Post) *Cursor {
	return &Cursor{posts: posts}
}

// Replace swaps in a rebuilt list and moves back to the first post.
func (c *Cursor) Replace(posts []*models.Post) {
	c.posts = posts
	c.index = 0
}

func (c *Cursor) Reset() {
	c.index = 0
}

func (c *Cursor) Prev() {
	c.index = max(0, c.index-1)
}

func (c *Cursor) Next() {
	c.index = max(0, min(len(c.posts)-1, c.index+1))
}

func (c *Cursor) Current() (*models.Post, error) {
	if len(c.posts) == 0 {
		return nil, ErrEmptyList
	}
	return c.posts[c.index], nil
}

func (c *Cursor) Index() int {
	return c.index
}

func (c *Cursor) Len() int {
	return len(c.posts)
}
