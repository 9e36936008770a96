package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"nanno-banana-ppdb/internal/campaign"
)

var ErrNotFound = errors.New("session not found")

// Session is one user's form: the campaign record plus front-end cursor
// state. Values handed out by Store are copies.
type Session struct {
	ID     string
	Record campaign.Record

	// Generating is set while an image request for this session is pending.
	Generating bool

	Menu          string
	AwaitingField campaign.Field
	MessageID     int

	UpdatedAt time.Time
}

func (s Session) clone() Session {
	s.Record = s.Record.Clone()
	return s
}

type Options struct {
	Now func() time.Time
}

type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewStore(opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		sessions: make(map[string]*Session),
		now:      now,
	}
}

// Create starts a session with a fresh default record under a random ID.
func (s *Store) Create() Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	return s.createLocked(id).clone()
}

func (s *Store) Get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess.clone(), nil
}

// GetOrCreate is Get for front ends with stable IDs (chat/user pairs).
func (s *Store) GetOrCreate(id string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		return sess.clone()
	}
	return s.createLocked(id).clone()
}

// Update runs fn on the stored session, creating it when missing.
func (s *Store) Update(id string, fn func(*Session)) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = s.createLocked(id)
	}
	if fn != nil {
		fn(sess)
	}
	sess.ID = id
	sess.UpdatedAt = s.now()
	return sess.clone()
}

// Apply replaces the record of an existing session with op's result. When op
// fails the stored record is left as it was.
func (s *Store) Apply(id string, op func(campaign.Record) (campaign.Record, error)) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}

	next, err := op(sess.Record.Clone())
	if err != nil {
		return sess.clone(), err
	}
	sess.Record = next
	sess.UpdatedAt = s.now()
	return sess.clone(), nil
}

// Reset puts a fresh default record into the session, keeping cursor state.
func (s *Store) Reset(id string) (Session, error) {
	return s.Apply(id, func(campaign.Record) (campaign.Record, error) {
		return campaign.New(s.now()), nil
	})
}

// BeginGeneration marks the session busy. It returns false when the session
// is missing or a request is already pending.
func (s *Store) BeginGeneration(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || sess.Generating {
		return false
	}
	sess.Generating = true
	sess.UpdatedAt = s.now()
	return true
}

func (s *Store) EndGeneration(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		sess.Generating = false
		sess.UpdatedAt = s.now()
	}
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Prune drops idle sessions not touched for maxIdle and returns how many
// were removed. Busy sessions are kept.
func (s *Store) Prune(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxIdle)
	removed := 0
	for id, sess := range s.sessions {
		if sess.Generating || sess.UpdatedAt.After(cutoff) {
			continue
		}
		delete(s.sessions, id)
		removed++
	}
	return removed
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) createLocked(id string) *Session {
	now := s.now()
	sess := &Session{
		ID:        id,
		Record:    campaign.New(now),
		Menu:      "main",
		UpdatedAt: now,
	}
	s.sessions[id] = sess
	return sess
}
