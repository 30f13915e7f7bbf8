package anidb

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// sessionState is the on-disk shape of the request budget. It is flushed
// after every mutation so rate-limit state survives process restarts.
type sessionState struct {
	MaxSession    int        `yaml:"max_session"`
	LastSession   int        `yaml:"last_session"`
	LastTime      *time.Time `yaml:"last_time,omitempty"`
	Banned        *time.Time `yaml:"banned,omitempty"`
	DumpFetchedAt *time.Time `yaml:"dump_fetched_at,omitempty"`
}

// Session tracks the per-process AniDB request budget and ban state
type Session struct {
	mu       sync.Mutex
	path     string
	state    sessionState
	banFor   time.Duration
	cooldown time.Duration
	now      func() time.Time
}

// SessionOptions configures a Session
type SessionOptions struct {
	Path        string
	MaxSession  int
	BanDuration time.Duration
	Cooldown    time.Duration

	// Now overrides the clock in tests
	Now func() time.Time
}

// OpenSession loads the session file, creating it with defaults when absent
func OpenSession(opts SessionOptions) (*Session, error) {
	if opts.MaxSession <= 0 {
		opts.MaxSession = 15
	}
	if opts.BanDuration <= 0 {
		opts.BanDuration = 24 * time.Hour
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 4 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	session := &Session{
		path:     opts.Path,
		banFor:   opts.BanDuration,
		cooldown: opts.Cooldown,
		now:      opts.Now,
		state:    sessionState{MaxSession: opts.MaxSession},
	}

	raw, err := os.ReadFile(opts.Path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &session.state); err != nil {
			return nil, fmt.Errorf("parsing session file %s: %w", opts.Path, err)
		}
		if session.state.MaxSession <= 0 {
			session.state.MaxSession = opts.MaxSession
		}
	case os.IsNotExist(err):
		if err := session.flushLocked(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("reading session file %s: %w", opts.Path, err)
	}

	return session, nil
}

// IsBanned reports whether the stored ban timestamp is still in effect
func (s *Session) IsBanned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bannedLocked()
}

func (s *Session) bannedLocked() bool {
	if s.state.Banned == nil {
		return false
	}
	return s.now().Sub(*s.state.Banned) < s.banFor
}

// BannedUntil returns when the current ban expires, nil if not banned
func (s *Session) BannedUntil() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.bannedLocked() {
		return nil
	}
	until := s.state.Banned.Add(s.banFor)
	return &until
}

// SetBanned records a fresh ban timestamp and flushes it
func (s *Session) SetBanned() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.state.Banned = &now
	return s.flushLocked()
}

// CanRequest reports whether the session budget currently permits a
// request: not banned, and either under the soft cap or past the
// cool-down window measured from the last request. Passing the cool-down
// resets the counter.
func (s *Session) CanRequest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bannedLocked() {
		return false
	}
	if s.state.LastSession < s.state.MaxSession {
		return true
	}
	if s.state.LastTime == nil || s.now().Sub(*s.state.LastTime) >= s.cooldown {
		s.state.LastSession = 0
		_ = s.flushLocked()
		return true
	}
	return false
}

// RecordRequest increments the session counter and stamps the last
// request time
func (s *Session) RecordRequest() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.state.LastSession++
	s.state.LastTime = &now
	return s.flushLocked()
}

// TitlesDumpDue reports whether the bulk title dump may be fetched again
// (at most once per the given ttl)
func (s *Session) TitlesDumpDue(ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.DumpFetchedAt == nil {
		return true
	}
	return s.now().Sub(*s.state.DumpFetchedAt) >= ttl
}

// RecordTitlesDump stamps the last title dump fetch time
func (s *Session) RecordTitlesDump() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.state.DumpFetchedAt = &now
	return s.flushLocked()
}

func (s *Session) flushLocked() error {
	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating session directory: %w", err)
		}
	}
	raw, err := yaml.Marshal(&s.state)
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0644); err != nil {
		return fmt.Errorf("flushing session file %s: %w", s.path, err)
	}
	return nil
}
