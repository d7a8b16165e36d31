package social

import "socialsim/models"

// IsVisible reports whether viewer may read post. Rules, first match wins:
// the viewer wrote it; it is public and the viewer follows the author; the
// viewer is on its access list.
func IsVisible(post *models.Post, viewer *models.Account) bool {
	if post == nil || viewer == nil {
		return false
	}
	if viewer.Username == post.Author {
		return true
	}
	if post.Public && viewer.Follows(post.Author) {
		return true
	}
	return post.Grants(viewer.Username)
}
