package discord

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jellybridge/jellybridge/internal/jellyseerr"
)

// sessionTTL bounds how long a paginated reply stays interactive.
const sessionTTL = 10 * time.Minute

// browseSession is the state behind one paginated search or discover reply.
type browseSession struct {
	ownerID   string
	items     []jellyseerr.MediaItem
	index     int
	createdAt time.Time
}

// requestsSession is the state behind one paginated request-status reply.
type requestsSession struct {
	ownerID   string
	requests  []jellyseerr.Request
	index     int
	createdAt time.Time
}

// sessionStore keeps pagination state in memory, keyed by a random id baked
// into the button custom ids. Entries expire after sessionTTL; stale ones
// are pruned on insert.
type sessionStore struct {
	mu       sync.Mutex
	browse   map[string]*browseSession
	requests map[string]*requestsSession
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		browse:   map[string]*browseSession{},
		requests: map[string]*requestsSession{},
	}
}

func (s *sessionStore) putBrowse(ownerID string, items []jellyseerr.MediaItem) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	id := uuid.NewString()
	s.browse[id] = &browseSession{ownerID: ownerID, items: items, createdAt: time.Now()}
	return id
}

func (s *sessionStore) getBrowse(id string) (*browseSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.browse[id]
	if !ok || time.Since(sess.createdAt) > sessionTTL {
		delete(s.browse, id)
		return nil, false
	}
	return sess, true
}

func (s *sessionStore) putRequests(ownerID string, requests []jellyseerr.Request) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	id := uuid.NewString()
	s.requests[id] = &requestsSession{ownerID: ownerID, requests: requests, createdAt: time.Now()}
	return id
}

func (s *sessionStore) getRequests(id string) (*requestsSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.requests[id]
	if !ok || time.Since(sess.createdAt) > sessionTTL {
		delete(s.requests, id)
		return nil, false
	}
	return sess, true
}

func (s *sessionStore) pruneLocked() {
	cutoff := time.Now().Add(-sessionTTL)
	for id, sess := range s.browse {
		if sess.createdAt.Before(cutoff) {
			delete(s.browse, id)
		}
	}
	for id, sess := range s.requests {
		if sess.createdAt.Before(cutoff) {
			delete(s.requests, id)
		}
	}
}

// step moves the index by delta, clamped to the item range. It reports
// whether the position changed.
func step(index, delta, total int) (int, bool) {
	next := index + delta
	if next < 0 || next >= total {
		return index, false
	}
	return next, true
}
