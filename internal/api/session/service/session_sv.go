package sessionService

import (
	"context"

	"AccessAI/internal/api/session"
	"AccessAI/internal/mode"
	contextPkg "AccessAI/pkg/context"

	"github.com/sirupsen/logrus"
)

func (s *sessionService) Create(ctx context.Context, req session.CreateSessionRequest) (session.SessionResponse, error) {
	buffer := &bufferSink{}
	sess, err := s.open(ctx, req, buffer, buffer)
	if err != nil {
		return session.SessionResponse{}, err
	}

	if err := sess.Sync(ctx); err != nil {
		s.forget(sess.ID())
		sess.Close()
		return session.SessionResponse{}, session.FromModeError(err)
	}
	return s.respond(sess, buffer), nil
}

// Open starts a session that emits straight into sink. The caller must Close
// it when the client goes away.
func (s *sessionService) Open(ctx context.Context, req session.CreateSessionRequest, sink mode.Sink) (*mode.Session, error) {
	return s.open(ctx, req, sink, nil)
}

func (s *sessionService) open(ctx context.Context, req session.CreateSessionRequest, sink mode.Sink, buffer *bufferSink) (*mode.Session, error) {
	requestID := contextPkg.GetRequestID(ctx)

	kind, err := mode.ParseKind(req.Mode)
	if err != nil {
		return nil, session.ErrInvalidMode
	}

	s.sweep()

	s.mu.Lock()
	full := len(s.sessions) >= s.opts.MaxSessions
	s.mu.Unlock()
	if full {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"limit":      s.opts.MaxSessions,
		}).Warn("Session limit reached")
		return nil, session.ErrTooManySessions
	}

	now := s.clock()
	id, err := s.utils.NewULIDFromTimestamp(now)
	if err != nil {
		return nil, session.ErrCreateSession
	}
	token, err := s.utils.NewSessionToken()
	if err != nil {
		return nil, session.ErrCreateSession
	}

	sess, err := mode.New(s.log, mode.Config{
		ID:                 id,
		Kind:               kind,
		Token:              token,
		Capabilities:       req.Capabilities,
		Sink:               sink,
		Vocabularies:       s.opts.Vocabularies,
		Translator:         s.opts.Translator,
		History:            s.opts.History,
		Lesson:             s.opts.Lesson,
		AutoTranslateDelay: s.opts.AutoTranslateDelay,
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"mode":       kind,
			"error":      err.Error(),
		}).Error("Failed to create mode session")
		return nil, session.ErrCreateSession
	}

	s.mu.Lock()
	s.sessions[id] = &entry{session: sess, buffer: buffer, lastSeen: now}
	s.mu.Unlock()

	sess.Start()

	s.log.WithFields(logrus.Fields{
		"request_id":    requestID,
		"session_id":    id,
		"mode":          kind,
		"speech_input":  req.Capabilities.SpeechInput,
		"speech_output": req.Capabilities.SpeechOutput,
	}).Info("Session created")

	return sess, nil
}

func (s *sessionService) Get(ctx context.Context, id string) (session.SessionResponse, error) {
	e, ok := s.lookup(id)
	if !ok {
		return session.SessionResponse{}, session.ErrSessionNotFound
	}
	return s.respond(e.session, e.buffer), nil
}

func (s *sessionService) Dispatch(ctx context.Context, id string, req session.EventRequest) (session.SessionResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	e, ok := s.lookup(id)
	if !ok {
		return session.SessionResponse{}, session.ErrSessionNotFound
	}

	ev, err := req.Event()
	if err != nil {
		return session.SessionResponse{}, session.ErrInvalidEvent
	}

	if err := e.session.Do(ctx, ev); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": id,
			"event":      ev.Kind,
			"error":      err.Error(),
		}).Warn("Session event rejected")
		return session.SessionResponse{}, session.FromModeError(err)
	}

	if ev.Kind == mode.EventStop {
		<-e.session.Done()
		s.forget(id)
	}
	return s.respond(e.session, e.buffer), nil
}

func (s *sessionService) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return session.ErrSessionNotFound
	}
	e.session.Close()

	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"session_id": id,
	}).Info("Session closed")
	return nil
}

// Shutdown closes every live session.
func (s *sessionService) Shutdown() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*entry)
	s.mu.Unlock()

	for _, e := range all {
		e.session.Close()
	}
}

func (s *sessionService) lookup(id string) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = s.clock()
	return e, true
}

func (s *sessionService) forget(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// sweep drops sessions that stopped on their own and REST sessions that have
// been idle too long. Websocket sessions live as long as their connection.
func (s *sessionService) sweep() {
	cutoff := s.clock().Add(-s.opts.IdleTimeout)

	var stale []*entry
	s.mu.Lock()
	for id, e := range s.sessions {
		select {
		case <-e.session.Done():
		default:
			if e.buffer == nil || e.lastSeen.After(cutoff) {
				continue
			}
		}
		stale = append(stale, e)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, e := range stale {
		s.log.WithFields(logrus.Fields{
			"session_id": e.session.ID(),
		}).Info("Reaping session")
		e.session.Close()
	}
}

func (s *sessionService) respond(sess *mode.Session, buffer *bufferSink) session.SessionResponse {
	resp := session.SessionResponse{
		ID:         sess.ID(),
		Token:      sess.Token(),
		State:      sess.Snapshot(),
		Directives: []mode.Directive{},
	}
	if buffer != nil {
		var dropped int
		resp.Directives, dropped = buffer.Drain()
		if dropped > 0 {
			s.log.WithFields(logrus.Fields{
				"session_id": sess.ID(),
				"dropped":    dropped,
			}).Warn("Directive buffer overflowed")
		}
	}
	return resp
}
