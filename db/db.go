package db

import (
	"errors"
	"fmt"
	"socialsim/models"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound          = errors.New("account not found")
	ErrDuplicateUsername = errors.New("username already exists")
)

// DB is the in-memory account directory. It is not safe for concurrent use;
// callers serialize access (see server.Server).
type DB struct {
	users map[string]*models.Account
	order []string

	clock func() time.Time
	last  time.Time
	seq   uint64

	cost int
	log  *zap.Logger
}

type Option func(*DB)

// WithClock replaces the wall clock used for post and message timestamps.
func WithClock(clock func() time.Time) Option {
	return func(db *DB) { db.clock = clock }
}

// WithBcryptCost sets the hashing cost for stored credentials.
func WithBcryptCost(cost int) Option {
	return func(db *DB) { db.cost = cost }
}

func WithLogger(log *zap.Logger) Option {
	return func(db *DB) { db.log = log }
}

func New(opts ...Option) *DB {
	db := &DB{
		users: make(map[string]*models.Account),
		clock: time.Now,
		cost:  bcrypt.DefaultCost,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Now returns a timestamp strictly greater than every timestamp it returned
// before, even when the underlying clock stalls or goes backwards.
func (db *DB) Now() time.Time {
	now := db.clock().UTC()
	if !now.After(db.last) {
		now = db.last.Add(time.Nanosecond)
	}
	db.last = now
	return now
}

// NextSeq returns the next value of the directory-wide insertion counter.
func (db *DB) NextSeq() uint64 {
	db.seq++
	return db.seq
}

// User methods
func (db *DB) CreateUser(login, password, name, bio string) error {
	if _, ok := db.users[login]; ok {
		return fmt.Errorf("create user %q: %w", login, ErrDuplicateUsername)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), db.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	db.users[login] = &models.Account{
		Username:  login,
		Password:  string(hashed),
		Profile:   models.Profile{Name: name, Bio: bio},
		CreatedAt: db.clock().UTC(),
	}
	db.order = append(db.order, login)
	db.log.Debug("account registered", zap.String("user", login))
	return nil
}

func (db *DB) AuthenticateUser(login, password string) (bool, error) {
	acc, ok := db.users[login]
	if !ok {
		return false, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(acc.Password), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (db *DB) UserExists(login string) bool {
	_, ok := db.users[login]
	return ok
}

// GetUser resolves a username by exact, case-sensitive match.
func (db *DB) GetUser(login string) (*models.Account, error) {
	acc, ok := db.users[login]
	if !ok {
		return nil, fmt.Errorf("%q: %w", login, ErrNotFound)
	}
	return acc, nil
}

// Users returns every account in registration order.
func (db *DB) Users() []*models.Account {
	users := make([]*models.Account, 0, len(db.order))
	for _, login := range db.order {
		users = append(users, db.users[login])
	}
	return users
}

// Profile methods
func (db *DB) Profile(login string) (models.Profile, error) {
	acc, err := db.GetUser(login)
	if err != nil {
		return models.Profile{}, err
	}
	return acc.Profile, nil
}

// UpdateProfile overwrites the display name and bio. Empty values keep the
// current field.
func (db *DB) UpdateProfile(login, name, bio string) error {
	acc, err := db.GetUser(login)
	if err != nil {
		return err
	}
	if name != "" {
		acc.Profile.Name = name
	}
	if bio != "" {
		acc.Profile.Bio = bio
	}
	return nil
}
