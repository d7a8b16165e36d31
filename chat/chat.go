package chat

import (
	"database/sql"
	"errors"
	"fmt"
	"socialsim/db"
	"socialsim/models"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var ErrEmptyMessage = errors.New("message text required")

const (
	statusSent = "sent"
	statusRead = "ackn"
)

// Log stores direct messages once per conversation and tracks, per
// recipient, which messages have not been read yet. Messages live in an
// in-process SQLite database that disappears with the Log.
type Log struct {
	db   *db.DB
	conn *sql.DB
	log  *zap.Logger
}

func New(database *db.DB, log *zap.Logger) (*Log, error) {
	if log == nil {
		log = zap.NewNop()
	}

	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, err
	}
	// Every new connection to :memory: would open an empty database.
	conn.SetMaxOpenConns(1)

	l := &Log{db: database, conn: conn, log: log}
	if err := l.init(); err != nil {
		conn.Close()
		return nil, err
	}
	return l, nil
}

func (l *Log) Close() error {
	return l.conn.Close()
}

func (l *Log) init() error {
	queries := []string{
		`CREATE TABLE messages (
			seq INTEGER PRIMARY KEY,
			id TEXT UNIQUE NOT NULL,
			sender TEXT NOT NULL,
			recipient TEXT NOT NULL,
			text TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'sent'
		)`,
		`CREATE INDEX idx_messages_pair ON messages(sender, recipient, timestamp)`,
		`CREATE INDEX idx_messages_unread ON messages(recipient, status)`,
	}

	for _, query := range queries {
		if _, err := l.conn.Exec(query); err != nil {
			return fmt.Errorf("init messages: %w", err)
		}
	}
	return nil
}

// Send appends a message to the conversation history and leaves it unread
// for the recipient.
func (l *Log) Send(sender, recipient, text string) (*models.Message, error) {
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if _, err := l.db.GetUser(sender); err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}
	if _, err := l.db.GetUser(recipient); err != nil {
		return nil, fmt.Errorf("recipient: %w", err)
	}

	msg := &models.Message{
		ID:        uuid.NewString(),
		Seq:       l.db.NextSeq(),
		Sender:    sender,
		Recipient: recipient,
		Text:      text,
		Timestamp: l.db.Now(),
	}
	_, err := l.conn.Exec(
		"INSERT INTO messages (seq, id, sender, recipient, text, timestamp, status) VALUES (?, ?, ?, ?, ?, ?, ?)",
		int64(msg.Seq), msg.ID, sender, recipient, text, msg.Timestamp.UnixNano(), statusSent,
	)
	if err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	l.log.Debug("message sent",
		zap.String("sender", sender),
		zap.String("recipient", recipient),
		zap.String("message", msg.ID))
	return msg, nil
}

// Peek returns the conversation between viewer and counterpart, oldest
// first, without touching read state.
func (l *Log) Peek(viewer, counterpart string) ([]*models.Message, error) {
	query := `
		SELECT seq, id, sender, recipient, text, timestamp
		FROM messages
		WHERE (sender = ? AND recipient = ?) OR (sender = ? AND recipient = ?)
		ORDER BY timestamp ASC, seq ASC
	`

	rows, err := l.conn.Query(query, viewer, counterpart, counterpart, viewer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var m models.Message
		var seq, nanos int64
		if err := rows.Scan(&seq, &m.ID, &m.Sender, &m.Recipient, &m.Text, &nanos); err != nil {
			return nil, err
		}
		m.Seq = uint64(seq)
		m.Timestamp = time.Unix(0, nanos).UTC()
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

// Consume marks every message viewer received from counterpart as read and
// reports how many were still unread. Messages from other counterparts stay
// unread.
func (l *Log) Consume(viewer, counterpart string) (int, error) {
	res, err := l.conn.Exec(
		"UPDATE messages SET status = ? WHERE recipient = ? AND sender = ? AND status = ?",
		statusRead, viewer, counterpart, statusSent,
	)
	if err != nil {
		return 0, err
	}
	consumed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if consumed > 0 {
		l.log.Debug("conversation read",
			zap.String("viewer", viewer),
			zap.String("counterpart", counterpart),
			zap.Int64("consumed", consumed))
	}
	return int(consumed), nil
}

// MarkConversationRead is Consume under the name used by the display layer.
func (l *Log) MarkConversationRead(viewer, counterpart string) (int, error) {
	return l.Consume(viewer, counterpart)
}

// GetConversation is the consuming read: it returns the conversation and
// then marks it read for viewer. History is retained for both parties.
func (l *Log) GetConversation(viewer, counterpart string) ([]*models.Message, error) {
	if _, err := l.db.GetUser(counterpart); err != nil {
		return nil, err
	}
	msgs, err := l.Peek(viewer, counterpart)
	if err != nil {
		return nil, err
	}
	if _, err := l.Consume(viewer, counterpart); err != nil {
		return nil, err
	}
	return msgs, nil
}

// UnreadSummary counts viewer's unread messages per sender.
func (l *Log) UnreadSummary(viewer string) (map[string]int, error) {
	query := `
		SELECT sender, COUNT(*)
		FROM messages
		WHERE recipient = ? AND status = ?
		GROUP BY sender
	`
	rows, err := l.conn.Query(query, viewer, statusSent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var sender string
		var count int
		if err := rows.Scan(&sender, &count); err != nil {
			return nil, err
		}
		counts[sender] = count
	}
	return counts, rows.Err()
}

func (l *Log) UnreadTotal(viewer string) (int, error) {
	var count int
	err := l.conn.QueryRow(
		"SELECT COUNT(*) FROM messages WHERE recipient = ? AND status = ?",
		viewer, statusSent,
	).Scan(&count)
	return count, err
}
