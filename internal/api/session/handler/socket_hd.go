package sessionHandler

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"AccessAI/internal/api/session"
	"AccessAI/internal/middleware"
	"AccessAI/internal/mode"
	contextPkg "AccessAI/pkg/context"
	"AccessAI/pkg/log"

	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

const (
	socketReadTimeout  = 2 * time.Minute
	socketWriteTimeout = 5 * time.Second
	socketEventTimeout = 10 * time.Second
)

// socketSink writes directives as JSON text frames. The session loop and the
// read loop both write, so writes are serialized.
type socketSink struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	log    *logrus.Logger
	closed bool
}

func (s *socketSink) Emit(d mode.Directive) {
	s.send(d)
}

func (s *socketSink) send(v interface{}) {
	data, err := jsoniter.Marshal(v)
	if err != nil {
		s.log.WithFields(log.Fields{
			"error": err.Error(),
		}).Error("Failed to encode websocket frame")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout)); err != nil {
		s.closed = true
		return
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.log.WithFields(log.Fields{
			"error": err.Error(),
		}).Warn("Failed to write websocket frame")
		s.closed = true
	}
}

func (s *socketSink) sendError(token uint64, code, message string) {
	s.send(mode.Directive{
		Type:  mode.DirectiveError,
		Token: token,
		Error: &mode.ErrorInfo{Code: code, Message: message},
	})
}

func (s *socketSink) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (h *SessionHandler) handleWebSocket(c *websocket.Conn) {
	requestID, _ := c.Locals(middleware.RequestIDKey).(string)
	ctx := contextPkg.WithRequestID(context.Background(), requestID)

	sink := &socketSink{conn: c, log: h.log}
	defer sink.close()

	req := session.CreateSessionRequest{
		Mode: c.Query("mode"),
		Capabilities: mode.Capabilities{
			SpeechInput:  queryBool(c.Query("speech_input"), true),
			SpeechOutput: queryBool(c.Query("speech_output"), true),
		},
	}

	sess, err := h.sessionService.Open(ctx, req, sink)
	if err != nil {
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"mode":       req.Mode,
			"error":      err.Error(),
		}).Warn("Rejected websocket session")
		sink.sendError(0, errorCode(err), err.Error())
		return
	}
	defer h.sessionService.Close(ctx, sess.ID())

	logger := h.log.WithFields(log.Fields{
		"request_id": requestID,
		"session_id": sess.ID(),
	})
	logger.Info("Session websocket connected")
	defer logger.Info("Session websocket disconnected")

	for {
		if err := c.SetReadDeadline(time.Now().Add(socketReadTimeout)); err != nil {
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithField("error", err.Error()).Warn("Session websocket error")
			}
			break
		}
		if messageType != websocket.TextMessage {
			sink.sendError(sess.Token(), "INVALID_EVENT", "Events must be JSON text frames")
			continue
		}

		var in session.EventRequest
		if err := jsoniter.Unmarshal(message, &in); err != nil {
			sink.sendError(sess.Token(), "INVALID_EVENT", "Malformed event")
			continue
		}
		if err := h.validator.Struct(in); err != nil {
			sink.sendError(sess.Token(), "INVALID_EVENT", err.Error())
			continue
		}

		ev, err := in.Event()
		if err != nil {
			sink.sendError(sess.Token(), "INVALID_EVENT", err.Error())
			continue
		}

		evCtx, cancel := context.WithTimeout(ctx, socketEventTimeout)
		err = sess.Do(evCtx, ev)
		cancel()

		if err != nil {
			apiErr := session.FromModeError(err)
			// The session already told the client about a pending confirmation.
			if !errors.Is(apiErr, session.ErrConfirmationPending) {
				sink.sendError(sess.Token(), errorCode(apiErr), apiErr.Error())
			}
			if errors.Is(apiErr, session.ErrSessionClosed) {
				break
			}
		}
		if ev.Kind == mode.EventStop {
			<-sess.Done()
			break
		}
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, session.ErrInvalidMode):
		return "INVALID_MODE"
	case errors.Is(err, session.ErrInvalidEvent):
		return "INVALID_EVENT"
	case errors.Is(err, session.ErrStaleToken):
		return "STALE_TOKEN"
	case errors.Is(err, session.ErrUnsupportedEvent):
		return "UNSUPPORTED_EVENT"
	case errors.Is(err, session.ErrSessionClosed):
		return "SESSION_CLOSED"
	case errors.Is(err, session.ErrTooManySessions):
		return "TOO_MANY_SESSIONS"
	}
	return "INTERNAL"
}

func queryBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
