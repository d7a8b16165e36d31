package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"slices"
	"socialsim/chat"
	"socialsim/cursor"
	"socialsim/db"
	"socialsim/protocol"
	"socialsim/social"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Server drives the core on behalf of console sessions. One mutex guards
// the directory, content and messaging log together: every command runs to
// completion before the next one starts.
type Server struct {
	db      *db.DB
	graph   *social.Graph
	content *social.Content
	feed    *social.Feed
	chat    *chat.Log
	config  *ServerConfig
	log     *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

type ServerConfig struct {
	MaxLineBytes int
}

// Session is the state of one console caller: who is logged in and where
// they are in the list being browsed.
type Session struct {
	Login    string
	Browsing string // "feed" or "mine"
	Cursor   *cursor.Cursor
	out      io.Writer
}

func New(database *db.DB, config *ServerConfig, log *zap.Logger) (*Server, error) {
	if config == nil {
		config = &ServerConfig{}
	}
	if config.MaxLineBytes == 0 {
		config.MaxLineBytes = 64 * 1024
	}
	if log == nil {
		log = zap.NewNop()
	}

	messages, err := chat.New(database, log.Named("chat"))
	if err != nil {
		return nil, err
	}

	return &Server{
		db:       database,
		graph:    social.NewGraph(database, log.Named("graph")),
		content:  social.NewContent(database, log.Named("content")),
		feed:     social.NewFeed(database, log.Named("feed")),
		chat:     messages,
		config:   config,
		log:      log,
		sessions: make(map[string]*Session),
	}, nil
}

// Close releases the message store. Sessions must have ended.
func (s *Server) Close() error {
	return s.chat.Close()
}

// Serve reads commands from r until EOF, "bye" or ctx is done, writing
// replies to w. A line longer than MaxLineBytes is answered with a failure
// and skipped.
//
// Serve returns as soon as ctx is done, but its reader goroutine stays
// blocked on r until the next read completes. Callers that outlive the
// session must close r to release it.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	session := &Session{Cursor: cursor.New(nil), out: w}
	defer s.endSession(session)

	lines := make(chan inputLine)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		overlong := false
		scanner := bufio.NewScanner(r)
		limit := s.config.MaxLineBytes
		// One extra byte leaves room for the newline of a line at the limit.
		scanner.Buffer(make([]byte, 0, min(4096, limit+1)), limit+1)
		scanner.Split(splitLines(limit, &overlong))
		for scanner.Scan() {
			line := inputLine{text: scanner.Text(), overlong: overlong}
			overlong = false
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return <-readErr
			}
			if line.overlong {
				s.log.Warn("line too long", zap.String("user", session.Login), zap.Int("limit", s.config.MaxLineBytes))
				s.sendError(session, "", "Invalid packet format")
				continue
			}
			if strings.TrimSpace(line.text) == "" {
				continue
			}
			if s.handleLine(session, line.text) {
				return nil
			}
		}
	}
}

type inputLine struct {
	text     string
	overlong bool
}

// splitLines is bufio.ScanLines with a length limit. A line over limit
// yields an empty token with *overlong set, and the rest of it up to the
// next newline is discarded.
func splitLines(limit int, overlong *bool) bufio.SplitFunc {
	discarding := false
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if discarding {
			i := bytes.IndexByte(data, '\n')
			if i < 0 {
				return len(data), nil, nil
			}
			discarding = false
			return i + 1, nil, nil
		}

		if i := bytes.IndexByte(data, '\n'); i > limit || (i < 0 && len(data) > limit) {
			*overlong = true
			if i >= 0 {
				return i + 1, []byte{}, nil
			}
			discarding = !atEOF
			return len(data), []byte{}, nil
		}
		return bufio.ScanLines(data, atEOF)
	}
}

// handleLine runs one command and reports whether the session is over.
func (s *Server) handleLine(session *Session, line string) bool {
	cmd, err := protocol.ParseCommand(line)
	if err != nil {
		s.log.Debug("parse error", zap.Error(err), zap.String("line", line))
		s.sendError(session, "", "Invalid packet format")
		return false
	}

	// Credentials stay out of the log.
	if cmd.Verb != "auth" && cmd.Verb != "reg" {
		s.log.Debug("command", zap.String("user", session.Login), zap.String("verb", cmd.Verb))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.handleCommand(session, cmd)
	return cmd.Verb == "bye"
}

func (s *Server) handleCommand(session *Session, cmd *protocol.Command) {
	switch cmd.Verb {
	case "ping":
		s.sendPacket(session, "pong")
	case "help":
		s.handleHelp(session)
	case "reg":
		s.handleRegister(session, cmd)
	case "auth":
		s.handleAuth(session, cmd)
	case "bye":
		s.handleBye(session)
	case "stats":
		s.sendPacket(session, "stats", s.stats()...)
	case "users":
		s.handleUsers(session)
	case "profile":
		s.handleProfile(session, cmd)
	case "setprofile":
		s.handleSetProfile(session, cmd)
	case "follow":
		s.handleFollow(session, cmd)
	case "unfollow":
		s.handleUnfollow(session, cmd)
	case "following":
		s.handleFollowing(session)
	case "post":
		s.handleCreatePost(session, cmd)
	case "feed":
		s.handleFeed(session)
	case "mine":
		s.handleMine(session)
	case "prev", "next", "cur":
		s.handleMove(session, cmd.Verb)
	case "edit":
		s.handleEdit(session, cmd)
	case "comment":
		s.handleComment(session, cmd)
	case "comments":
		s.handleComments(session)
	case "grant":
		s.handleGrant(session, cmd)
	case "access":
		s.handleAccess(session)
	case "msg":
		s.handleMessage(session, cmd)
	case "hist":
		s.handleHistory(session, cmd, true)
	case "peek":
		s.handleHistory(session, cmd, false)
	case "unread":
		s.handleUnread(session)
	default:
		s.sendError(session, "", "Unknown packet type")
	}
}

func (s *Server) sendPacket(session *Session, verb string, fields ...string) {
	if _, err := io.WriteString(session.out, protocol.FormatReply(verb, fields...)); err != nil {
		s.log.Warn("write reply", zap.String("user", session.Login), zap.Error(err))
	}
}

func (s *Server) sendOK(session *Session, operation string, fields ...string) {
	s.sendPacket(session, "ok", append([]string{operation}, fields...)...)
}

func (s *Server) sendError(session *Session, operation, description string) {
	if operation != "" {
		s.sendPacket(session, "fail", operation, description)
	} else {
		s.sendPacket(session, "fail", description)
	}
}

// sendFailure maps core errors onto reply text. Anything unrecognised is
// logged and reported as an internal error.
func (s *Server) sendFailure(session *Session, operation string, err error) {
	var reason string
	switch {
	case errors.Is(err, db.ErrNotFound):
		reason = "User not found"
	case errors.Is(err, db.ErrDuplicateUsername):
		reason = "User already exists"
	case errors.Is(err, social.ErrSelfReference):
		reason = "You can't " + operation + " yourself"
	case errors.Is(err, social.ErrPermission):
		reason = "You can only change your own posts"
	case errors.Is(err, social.ErrPostNotFound):
		reason = "Post not found"
	case errors.Is(err, cursor.ErrEmptyList):
		reason = "No posts to display"
	case errors.Is(err, chat.ErrEmptyMessage):
		reason = "Message text required"
	default:
		s.log.Error("command failed", zap.String("op", operation), zap.String("user", session.Login), zap.Error(err))
		reason = "Internal error"
	}
	s.sendError(session, operation, reason)
}

func (s *Server) addSession(login string, session *Session) {
	s.sessions[login] = session
}

func (s *Server) endSession(session *Session) {
	if session.Login == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.sessions[session.Login]; ok && current == session {
		delete(s.sessions, session.Login)
	}
}

// stats describes the active sessions. Callers hold s.mu.
func (s *Server) stats() []string {
	var users []string
	for login := range s.sessions {
		users = append(users, login)
	}
	slices.Sort(users)
	return []string{
		"sessions=" + strconv.Itoa(len(s.sessions)),
		"accounts=" + strconv.Itoa(len(s.db.Users())),
		"users=" + strings.Join(users, ";"),
	}
}

// Stats is the locked form of stats for callers outside a session.
func (s *Server) Stats() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.stats(), " ")
}
