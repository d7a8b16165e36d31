package social

import (
	"testing"

	"socialsim/models"

	"github.com/stretchr/testify/assert"
)

func TestIsVisible(t *testing.T) {
	tests := []struct {
		name      string
		public    bool
		follows   bool
		granted   bool
		viewer    string
		isVisible bool
	}{
		{name: "author sees private post", viewer: "bob", isVisible: true},
		{name: "author sees public post", viewer: "bob", public: true, isVisible: true},
		{name: "follower sees public post", viewer: "alice", public: true, follows: true, isVisible: true},
		{name: "follower does not see private post", viewer: "alice", follows: true, isVisible: false},
		{name: "stranger does not see public post", viewer: "alice", public: true, isVisible: false},
		{name: "granted stranger sees private post", viewer: "alice", granted: true, isVisible: true},
		{name: "granted follower sees private post", viewer: "alice", follows: true, granted: true, isVisible: true},
		{name: "stranger does not see private post", viewer: "alice", isVisible: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := &models.Post{Author: "bob", Public: tt.public}
			if tt.granted {
				post.AccessList = []string{tt.viewer}
			}
			viewer := &models.Account{Username: tt.viewer}
			if tt.follows {
				viewer.Following = []string{"bob"}
			}

			assert.Equal(t, tt.isVisible, IsVisible(post, viewer))
		})
	}
}

// Every combination of flags agrees with the closed-form rule.
func TestIsVisibleMatchesRule(t *testing.T) {
	for _, isAuthor := range []bool{false, true} {
		for _, public := range []bool{false, true} {
			for _, follows := range []bool{false, true} {
				for _, granted := range []bool{false, true} {
					viewer := &models.Account{Username: "alice"}
					author := "bob"
					if isAuthor {
						author = "alice"
					}
					if follows {
						viewer.Following = []string{author}
					}
					post := &models.Post{Author: author, Public: public}
					if granted {
						post.AccessList = []string{"alice"}
					}

					want := isAuthor || (public && follows) || granted
					assert.Equal(t, want, IsVisible(post, viewer),
						"author=%v public=%v follows=%v granted=%v", isAuthor, public, follows, granted)
				}
			}
		}
	}
}

func TestIsVisibleNil(t *testing.T) {
	assert.False(t, IsVisible(nil, &models.Account{Username: "alice"}))
	assert.False(t, IsVisible(&models.Post{Author: "alice", Public: true}, nil))
}
