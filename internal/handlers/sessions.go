package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"
	"visionary-backend/internal/admin"
	"visionary-backend/internal/messages"
	"visionary-backend/internal/models"
	"visionary-backend/internal/notify"
)

// session is one browser context. It owns the inbox of the signed in user
// and the admin panel.
type session struct {
	id       string
	notifier notify.Notifier
	panel    *admin.Panel

	mutex     sync.Mutex
	inbox     *messages.Inbox
	inboxUser string
	lastSeen  time.Time
}

func messagesKey(userID string) string {
	return fmt.Sprintf("userMessages:%s", userID)
}

// maxSessions bounds the per-session state kept in memory.
const maxSessions = 10000

func (s *Server) session(sessionID string) *session {
	s.sessionsMutex.Lock()
	defer s.sessionsMutex.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		if len(s.sessions) >= s.maxSessions {
			s.evictOldestLocked()
		}
		s.sugar.Debugf("Creating state for session ID [%s]", sessionID)

		notifier := notify.Multi{notify.LogNotifier{Sugar: s.sugar}, s.hub.Notifier(sessionID)}
		sess = &session{
			id:       sessionID,
			notifier: notifier,
			panel:    admin.NewPanel(s.sugar, s.api, notifier),
		}
		s.sessions[sessionID] = sess
	}

	sess.mutex.Lock()
	sess.lastSeen = time.Now()
	sess.mutex.Unlock()

	return sess
}

// evictOldestLocked drops the least recently seen session. The caller holds
// sessionsMutex.
func (s *Server) evictOldestLocked() {
	var oldestID string
	var oldest *session
	var oldestSeen time.Time
	for id, sess := range s.sessions {
		sess.mutex.Lock()
		lastSeen := sess.lastSeen
		sess.mutex.Unlock()
		if oldest == nil || lastSeen.Before(oldestSeen) {
			oldestID, oldest, oldestSeen = id, sess, lastSeen
		}
	}
	if oldest == nil {
		return
	}

	s.sugar.Warnf("Session limit of %d reached, dropping session ID [%s]", s.maxSessions, oldestID)
	oldest.mutex.Lock()
	if oldest.inbox != nil {
		oldest.inbox.Close()
		oldest.inbox = nil
	}
	oldest.mutex.Unlock()
	delete(s.sessions, oldestID)
}

// inboxFor returns the inbox of identity, remounting when the signed in
// user of the session changed.
func (s *Server) inboxFor(ctx context.Context, sess *session, identity *models.Identity) (*messages.Inbox, error) {
	sess.mutex.Lock()
	defer sess.mutex.Unlock()

	if sess.inbox != nil && sess.inboxUser == identity.UserID {
		return sess.inbox, nil
	}
	if sess.inbox != nil {
		sess.inbox.Close()
		sess.inbox = nil
	}

	inbox := messages.NewInbox(s.sugar, s.store, sess.notifier, messages.Options{
		Key:         messagesKey(identity.UserID),
		Origin:      sess.id,
		ProductName: s.cfg.ProductName,
	})
	err := inbox.Mount(ctx, identity)
	if err != nil {
		return nil, err
	}

	sess.inbox = inbox
	sess.inboxUser = identity.UserID
	return inbox, nil
}

// SweepSessions drops sessions idle for longer than maxIdle and returns how
// many were dropped.
func (s *Server) SweepSessions(maxIdle time.Duration) int {
	s.sessionsMutex.Lock()
	defer s.sessionsMutex.Unlock()

	dropped := 0
	for id, sess := range s.sessions {
		sess.mutex.Lock()
		idle := time.Since(sess.lastSeen) > maxIdle && s.hub.ConnectedSockets(id) == 0
		if idle && sess.inbox != nil {
			sess.inbox.Close()
			sess.inbox = nil
		}
		sess.mutex.Unlock()

		if idle {
			delete(s.sessions, id)
			dropped++
		}
	}

	if dropped > 0 {
		s.sugar.Debugf("Dropped %d idle sessions", dropped)
	}
	return dropped
}

// RunSessionSweeper calls SweepSessions every interval until ctx is done.
func (s *Server) RunSessionSweeper(ctx context.Context, interval time.Duration, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepSessions(maxIdle)
		}
	}
}

func (s *Server) Close() {
	s.sessionsMutex.Lock()
	defer s.sessionsMutex.Unlock()

	for id, sess := range s.sessions {
		sess.mutex.Lock()
		if sess.inbox != nil {
			sess.inbox.Close()
		}
		sess.mutex.Unlock()
		delete(s.sessions, id)
	}
}
