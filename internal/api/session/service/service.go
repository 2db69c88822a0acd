package sessionService

import (
	"context"
	"sync"
	"time"

	"AccessAI/internal/api/session"
	"AccessAI/internal/mode"
	"AccessAI/pkg/command"
	"AccessAI/pkg/utils"

	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxSessions        = 256
	DefaultIdleTimeout        = 30 * time.Minute
	DefaultAutoTranslateDelay = time.Second
)

type ISessionService interface {
	Create(ctx context.Context, req session.CreateSessionRequest) (session.SessionResponse, error)
	Open(ctx context.Context, req session.CreateSessionRequest, sink mode.Sink) (*mode.Session, error)
	Get(ctx context.Context, id string) (session.SessionResponse, error)
	Dispatch(ctx context.Context, id string, req session.EventRequest) (session.SessionResponse, error)
	Close(ctx context.Context, id string) error
	Shutdown()
}

type Options struct {
	Vocabularies       *command.Set
	Translator         mode.Translator
	History            mode.HistoryRecorder
	Lesson             []mode.Section
	AutoTranslateDelay time.Duration
	MaxSessions        int
	IdleTimeout        time.Duration
}

type entry struct {
	session  *mode.Session
	buffer   *bufferSink
	lastSeen time.Time
}

type sessionService struct {
	log   *logrus.Logger
	utils utils.IUtils
	opts  Options
	clock func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewSessionService(log *logrus.Logger, utils utils.IUtils, opts Options) ISessionService {
	if opts.Vocabularies == nil {
		opts.Vocabularies = command.Default()
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}

	return &sessionService{
		log:      log,
		utils:    utils,
		opts:     opts,
		clock:    time.Now,
		sessions: make(map[string]*entry),
	}
}
