package models

import (
	"fmt"
	"time"
)

type Profile struct {
	Name string
	Bio  string
}

type Account struct {
	Username  string
	Password  string // hashed
	Profile   Profile
	Following []string
	Posts     []*Post
	CreatedAt time.Time
}

// Follows reports whether the account has target in its following set.
func (a *Account) Follows(target string) bool {
	for _, login := range a.Following {
		if login == target {
			return true
		}
	}
	return false
}

// Kind selects how a post's payload is interpreted.
type Kind int

const (
	KindText Kind = iota
	KindImage
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// PayloadLabel is the display name of the payload field for the kind.
func (k Kind) PayloadLabel() string {
	switch k {
	case KindImage:
		return "image_url"
	case KindVideo:
		return "video_url"
	default:
		return "text"
	}
}

// ParseKind accepts the names produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "text":
		return KindText, nil
	case "image":
		return KindImage, nil
	case "video":
		return KindVideo, nil
	default:
		return 0, fmt.Errorf("unknown post kind %q", s)
	}
}

type Post struct {
	ID         string
	Seq        uint64
	Author     string
	Kind       Kind
	Payload    string
	Public     bool
	AccessList []string
	Comments   []Comment
	Timestamp  time.Time
}

// Grants reports whether login is on the post's access list.
func (p *Post) Grants(login string) bool {
	for _, l := range p.AccessList {
		if l == login {
			return true
		}
	}
	return false
}

type Comment struct {
	Author string
	Text   string
}

type Message struct {
	ID        string
	Seq       uint64
	Sender    string
	Recipient string
	Text      string
	Timestamp time.Time
}
