package server

import (
	"slices"
	"socialsim/models"
	"socialsim/protocol"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const timeLayout = time.RFC3339Nano

var commands = []string{
	"ping", "help", "reg", "auth", "bye", "stats", "users",
	"profile", "setprofile", "follow", "unfollow", "following",
	"post", "feed", "mine", "prev", "next", "cur",
	"edit", "comment", "comments", "grant", "access",
	"msg", "hist", "peek", "unread",
}

func (s *Server) handleHelp(session *Session) {
	s.sendPacket(session, "help", protocol.FormatList(commands))
}

// authenticated sends the standard failure when nobody is logged in.
func (s *Server) authenticated(session *Session, operation string) bool {
	if session.Login == "" {
		s.sendError(session, operation, "Not authenticated")
		return false
	}
	return true
}

func (s *Server) handleRegister(session *Session, cmd *protocol.Command) {
	// Format: reg|login|password|name|bio
	login, password := cmd.Arg(0), cmd.Arg(1)
	if login == "" || password == "" {
		s.sendError(session, "reg", "Invalid data")
		return
	}

	name := cmd.Arg(2)
	if name == "" {
		name = login
	}
	if err := s.db.CreateUser(login, password, name, cmd.Arg(3)); err != nil {
		s.sendFailure(session, "reg", err)
		return
	}

	// A fresh registration logs the session in.
	if session.Login == "" {
		session.Login = login
		s.addSession(login, session)
	}
	s.log.Info("account registered", zap.String("user", login))
	s.sendOK(session, "reg")
}

func (s *Server) handleAuth(session *Session, cmd *protocol.Command) {
	login, password := cmd.Arg(0), cmd.Arg(1)
	if login == "" || password == "" {
		s.sendError(session, "auth", "Invalid credentials")
		return
	}

	if session.Login != "" {
		s.sendOK(session, "auth")
		return
	}

	valid, err := s.db.AuthenticateUser(login, password)
	if err != nil {
		s.sendFailure(session, "auth", err)
		return
	}
	if !valid {
		s.sendError(session, "auth", "Invalid credentials")
		return
	}

	unread, err := s.chat.UnreadTotal(login)
	if err != nil {
		s.sendFailure(session, "auth", err)
		return
	}

	session.Login = login
	s.addSession(login, session)
	s.log.Info("session authenticated", zap.String("user", login))
	s.sendOK(session, "auth", strconv.Itoa(unread))
}

func (s *Server) handleBye(session *Session) {
	s.sendPacket(session, "bye")
	if session.Login != "" {
		if current, ok := s.sessions[session.Login]; ok && current == session {
			delete(s.sessions, session.Login)
		}
		s.log.Info("session closed", zap.String("user", session.Login))
	}
}

func (s *Server) handleUsers(session *Session) {
	if !s.authenticated(session, "users") {
		return
	}
	var logins []string
	for _, acc := range s.db.Users() {
		logins = append(logins, acc.Username)
	}
	s.sendPacket(session, "users", protocol.FormatList(logins))
}

func (s *Server) handleProfile(session *Session, cmd *protocol.Command) {
	if !s.authenticated(session, "profile") {
		return
	}
	login := cmd.Arg(0)
	if login == "" {
		login = session.Login
	}

	profile, err := s.db.Profile(login)
	if err != nil {
		s.sendFailure(session, "profile", err)
		return
	}
	s.sendPacket(session, "profile", login, profile.Name, profile.Bio)
}

func (s *Server) handleSetProfile(session *Session, cmd *protocol.Command) {
	if !s.authenticated(session, "setprofile") {
		return
	}
	if cmd.Arg(0) == "" && cmd.Arg(1) == "" {
		s.sendError(session, "setprofile", "Invalid data")
		return
	}
	if err := s.db.UpdateProfile(session.Login, cmd.Arg(0), cmd.Arg(1)); err != nil {
		s.sendFailure(session, "setprofile", err)
		return
	}
	s.sendOK(session, "setprofile")
}

func (s *Server) handleFollow(session *Session, cmd *protocol.Command) {
	if !s.authenticated(session, "follow") {
		return
	}
	target := cmd.Arg(0)
	if target == "" {
		s.sendError(session, "follow", "User required")
		return
	}
	if err := s.graph.Follow(session.Login, target); err != nil {
		s.sendFailure(session, "follow", err)
		return
	}
	s.sendOK(session, "follow")
}

func (s *Server) handleUnfollow(session *Session, cmd *protocol.Command) {
	if !s.authenticated(session, "unfollow") {
		return
	}
	target := cmd.Arg(0)
	if target == "" {
		s.sendError(session, "unfollow", "User required")
		return
	}
	if err := s.graph.Unfollow(session.Login, target); err != nil {
		s.sendFailure(session, "unfollow", err)
		return
	}
	s.sendOK(session, "unfollow")
}

func (s *Server) handleFollowing(session *Session) {
	if !s.authenticated(session, "following") {
		return
	}
	following, err := s.graph.Following(session.Login)
	if err != nil {
		s.sendFailure(session, "following", err)
		return
	}
	s.sendPacket(session, "following", protocol.FormatList(following))
}

func (s *Server) handleCreatePost(session *Session, cmd *protocol.Command) {
	if !s.authenticated(session, "post") {
		return
	}

	// Format: post|kind|payload|visibility
	kind, err := models.ParseKind(strings.ToLower(cmd.Arg(0)))
	if err != nil {
		s.sendError(session, "post", "Unknown post type")
		return
	}
	public, ok := parseVisibility(cmd.Arg(2))
	if !ok {
		s.sendError(session, "post", "Visibility must be public or private")
		return
	}

	post, err := s.content.CreatePost(session.Login, kind, cmd.Arg(1), public)
	if err != nil {
		s.sendFailure(session, "post", err)
		return
	}
	s.sendOK(session, "post", post.ID)
}

func (s *Server) handleFeed(session *Session) {
	if !s.authenticated(session, "feed") {
		return
	}
	posts, err := s.feed.Build(session.Login)
	if err != nil {
		s.sendFailure(session, "feed", err)
		return
	}
	session.Browsing = "feed"
	session.Cursor.Replace(posts)
	s.sendCurrent(session, "feed")
}

func (s *Server) handleMine(session *Session) {
	if !s.authenticated(session, "mine") {
		return
	}
	posts, err := s.content.OwnPosts(session.Login)
	if err != nil {
		s.sendFailure(session, "mine", err)
		return
	}
	session.Browsing = "mine"
	session.Cursor.Replace(posts)
	s.sendCurrent(session, "mine")
}

func (s *Server) handleMove(session *Session, verb string) {
	if !s.authenticated(session, verb) {
		return
	}
	switch verb {
	case "prev":
		session.Cursor.Prev()
	case "next":
		session.Cursor.Next()
	}
	s.sendCurrent(session, verb)
}

func (s *Server) handleEdit(session *Session, cmd *protocol.Command) {
	if !s.authenticated(session, "edit") {
		return
	}
	post, err := session.Cursor.Current()
	if err != nil {
		s.sendFailure(session, "edit", err)
		return
	}
	public, ok := parseVisibility(cmd.Arg(1))
	if !ok {
		s.sendError(session, "edit", "Visibility must be public or private")
		return
	}

	if err := s.content.EditPost(session.Login, post.ID, cmd.Arg(0), public); err != nil {
		s.sendFailure(session, "edit", err)
		return
	}
	s.sendOK(session, "edit")
}

func (s *Server) handleComment(session *Session, cmd *protocol.Command) {
	if !s.authenticated(session, "comment") {
		return
	}
	text := cmd.Arg(0)
	if text == "" {
		s.sendError(session, "comment", "Comment text required")
		return
	}
	post, err := session.Cursor.Current()
	if err != nil {
		s.sendFailure(session, "comment", err)
		return
	}
	if err := s.content.AddComment(session.Login, post.ID, text); err != nil {
		s.sendFailure(session, "comment", err)
		return
	}
	s.sendOK(session, "comment")
}

func (s *Server) handleComments(session *Session) {
	if !s.authenticated(session, "comments") {
		return
	}
	post, err := session.Cursor.Current()
	if err != nil {
		s.sendFailure(session, "comments", err)
		return
	}
	comments, err := s.content.Comments(post.ID)
	if err != nil {
		s.sendFailure(session, "comments", err)
		return
	}

	for _, c := range comments {
		s.sendPacket(session, "comment", c.Author, c.Text)
	}
	s.sendOK(session, "comments", strconv.Itoa(len(comments)))
}

func (s *Server) handleGrant(session *Session, cmd *protocol.Command) {
	if !s.authenticated(session, "grant") {
		return
	}
	account := cmd.Arg(0)
	if account == "" {
		s.sendError(session, "grant", "User required")
		return
	}
	post, err := session.Cursor.Current()
	if err != nil {
		s.sendFailure(session, "grant", err)
		return
	}
	if err := s.content.GrantAccess(session.Login, post.ID, account); err != nil {
		s.sendFailure(session, "grant", err)
		return
	}
	s.sendOK(session, "grant")
}

func (s *Server) handleAccess(session *Session) {
	if !s.authenticated(session, "access") {
		return
	}
	post, err := session.Cursor.Current()
	if err != nil {
		s.sendFailure(session, "access", err)
		return
	}
	list, err := s.content.AccessList(post.ID)
	if err != nil {
		s.sendFailure(session, "access", err)
		return
	}
	s.sendPacket(session, "access", post.ID, protocol.FormatList(list))
}

func (s *Server) handleMessage(session *Session, cmd *protocol.Command) {
	if !s.authenticated(session, "msg") {
		return
	}
	recipient := cmd.Arg(0)
	if recipient == "" {
		s.sendError(session, "msg", "Recipient required")
		return
	}
	if _, err := s.chat.Send(session.Login, recipient, cmd.Arg(1)); err != nil {
		s.sendFailure(session, "msg", err)
		return
	}
	s.sendOK(session, "msg")
}

// handleHistory lists a conversation. hist marks it read for the caller;
// peek leaves the unread marker alone.
func (s *Server) handleHistory(session *Session, cmd *protocol.Command, consume bool) {
	op := "peek"
	if consume {
		op = "hist"
	}
	if !s.authenticated(session, op) {
		return
	}
	contact := cmd.Arg(0)
	if contact == "" {
		s.sendError(session, op, "Contact required")
		return
	}
	if _, err := s.db.GetUser(contact); err != nil {
		s.sendFailure(session, op, err)
		return
	}

	var messages []*models.Message
	var err error
	if consume {
		messages, err = s.chat.GetConversation(session.Login, contact)
	} else {
		messages, err = s.chat.Peek(session.Login, contact)
	}
	if err != nil {
		s.sendFailure(session, op, err)
		return
	}

	for _, m := range messages {
		s.sendPacket(session, "msg", m.Sender, m.Recipient, m.Text, m.Timestamp.Format(timeLayout))
	}
	s.sendOK(session, op, strconv.Itoa(len(messages)))
}

func (s *Server) handleUnread(session *Session) {
	if !s.authenticated(session, "unread") {
		return
	}
	counts, err := s.chat.UnreadSummary(session.Login)
	if err != nil {
		s.sendFailure(session, "unread", err)
		return
	}

	senders := make([]string, 0, len(counts))
	total := 0
	for sender, count := range counts {
		senders = append(senders, sender)
		total += count
	}
	slices.Sort(senders)

	for _, sender := range senders {
		s.sendPacket(session, "unread", sender, strconv.Itoa(counts[sender]))
	}
	s.sendOK(session, "unread", strconv.Itoa(total))
}

// sendCurrent writes the post under the cursor, or the empty-list failure.
func (s *Server) sendCurrent(session *Session, operation string) {
	post, err := session.Cursor.Current()
	if err != nil {
		s.sendFailure(session, operation, err)
		return
	}

	position := strconv.Itoa(session.Cursor.Index()+1) + "/" + strconv.Itoa(session.Cursor.Len())
	visibility := "private"
	if post.Public {
		visibility = "public"
	}
	s.sendPacket(session, "post",
		session.Browsing,
		position,
		post.ID,
		post.Author,
		post.Kind.String(),
		post.Payload,
		visibility,
		post.Timestamp.Format(timeLayout),
		strconv.Itoa(len(post.Comments)),
	)
}

func parseVisibility(s string) (public bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public", "y", "yes":
		return true, true
	case "private", "n", "no":
		return false, true
	default:
		return false, false
	}
}
