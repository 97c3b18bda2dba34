package server

import (
	"sync"
	"time"

	"github.com/chaos-io/maskeraser/compare"
	"github.com/chaos-io/maskeraser/util"
	"github.com/chaos-io/maskeraser/workflow"
	"github.com/robfig/cron/v3"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

// Session 一个用户的去除流程
type Session struct {
	ID     string
	Editor *workflow.Editor
	Toasts *workflow.Toasts
	Slider *compare.Slider

	mu         sync.Mutex
	lastAccess time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastAccess = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

// SessionStore 内存中的 session，过期的由 cron 定时清理
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	newFn    func() (*workflow.Editor, *workflow.Toasts)
	now      func() time.Time
	cron     *cron.Cron
}

func NewSessionStore(ttl time.Duration, newFn func() (*workflow.Editor, *workflow.Toasts)) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		newFn:    newFn,
		now:      time.Now,
	}
}

func (s *SessionStore) Create() *Session {
	editor, toasts := s.newFn()
	sess := &Session{
		ID:         ksuid.New().String(),
		Editor:     editor,
		Toasts:     toasts,
		Slider:     compare.NewSlider(compare.DefaultCooldown),
		lastAccess: s.now(),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	util.Logger.Debug("session created", zap.String("session", sess.ID))
	return sess
}

func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		sess.touch(s.now())
	}
	return sess, ok
}

func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep 删除空闲超过 ttl 的 session，返回删除的数量
// 正在等待远端结果的 session 不会被删除
func (s *SessionStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	deadline := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		if sess.idleSince().Before(deadline) && !sess.Editor.Status().Busy {
			delete(s.sessions, id)
			n++
		}
	}
	if n > 0 {
		util.Logger.Info("expired sessions swept", zap.Int("count", n), zap.Int("remaining", len(s.sessions)))
	}
	return n
}

// StartSweeper 按 cron spec 定时清理，例如 "@every 1m"
func (s *SessionStore) StartSweeper(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { s.Sweep() }); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	return nil
}

func (s *SessionStore) StopSweeper() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}
