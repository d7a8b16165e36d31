package server

import (
	"fmt"
	"socialsim/models"
)

type seedPost struct {
	author  string
	kind    models.Kind
	payload string
	public  bool
}

// Seed registers the demo accounts and their posts. It fails if either
// account already exists.
func (s *Server) Seed() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := []struct{ login, password, name string }{
		{"Sarto", "1023", "Sarto"},
		{"Aof", "1055", "Aof"},
	}
	for _, a := range accounts {
		if err := s.db.CreateUser(a.login, a.password, a.name, "..."); err != nil {
			return fmt.Errorf("seed %s: %w", a.login, err)
		}
	}

	posts := []seedPost{
		{"Sarto", models.KindText, "This is my first text post!", true},
		{"Aof", models.KindText, "This is my first text post!", true},
		{"Aof", models.KindText, "This is my private post!", false},
		{"Sarto", models.KindImage, "https://i.pinimg.com/564x/53/7e/31/537e315ad64391e28765ef86ba555e67.jpg", true},
		{"Sarto", models.KindVideo, "https://youtu.be/dQw4w9WgXcQ", true},
		{"Aof", models.KindText, "Another post!", true},
	}
	for _, p := range posts {
		if _, err := s.content.CreatePost(p.author, p.kind, p.payload, p.public); err != nil {
			return fmt.Errorf("seed post for %s: %w", p.author, err)
		}
	}
	return nil
}
