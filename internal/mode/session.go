package mode

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"AccessAI/internal/entity"
	"AccessAI/pkg/command"
	"AccessAI/pkg/confirmation"
	"AccessAI/pkg/gesture"
	"AccessAI/pkg/oracle"
	"AccessAI/pkg/turntaking"

	"github.com/sirupsen/logrus"
)

var ErrInvalidEvent = errors.New("invalid event")

const (
	eventBuffer           = 64
	defaultHistoryTimeout = 3 * time.Second
	defaultPrompt         = "Please confirm."
	cancelledSpeech       = "Action cancelled."
)

type Translator interface {
	Reconstruct(ctx context.Context, tokens []string) (oracle.Result, error)
}

type HistoryRecorder interface {
	Record(ctx context.Context, entry entity.History) error
}

type Config struct {
	ID           string
	Kind         Kind
	Token        uint64
	Capabilities Capabilities
	Sink         Sink

	Vocabularies *command.Set
	Translator   Translator
	History      HistoryRecorder
	Clock        func() time.Time

	Lesson             []Section
	AutoTranslateDelay time.Duration
	MinConfidence      float64
	SignalWindow       time.Duration
	HistoryTimeout     time.Duration
}

type envelope struct {
	ev    Event
	reply chan error
}

// Session is one mode session. All events are handled one at a time, in
// arrival order, by a single goroutine; nothing else touches the controller,
// the gate or the mode state.
type Session struct {
	id    string
	kind  Kind
	token uint64
	log   *logrus.Logger
	clock func() time.Time
	sink  Sink

	ctrl     *turntaking.Controller
	gate     *confirmation.Gate
	latch    *confirmation.Latch
	vocab    command.Vocabulary
	confirm  command.Vocabulary
	mode     behaviour
	detector *gesture.Detector
	board    *deafBoard

	translator     Translator
	history        HistoryRecorder
	historyTimeout time.Duration
	autoDelay      time.Duration
	timer          *time.Timer
	lastCommand    command.Symbol

	events    chan envelope
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
	snapshot  atomic.Pointer[Snapshot]
}

func New(log *logrus.Logger, cfg Config) (*Session, error) {
	if cfg.Sink == nil {
		return nil, errors.New("mode session requires a sink")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Vocabularies == nil {
		cfg.Vocabularies = command.Default()
	}
	if cfg.HistoryTimeout <= 0 {
		cfg.HistoryTimeout = defaultHistoryTimeout
	}
	if cfg.MinConfidence == 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:             cfg.ID,
		kind:           cfg.Kind,
		token:          cfg.Token,
		log:            log,
		clock:          cfg.Clock,
		sink:           cfg.Sink,
		gate:           confirmation.NewGate(cfg.Clock),
		latch:          confirmation.NewLatch(cfg.SignalWindow, cfg.Clock),
		translator:     cfg.Translator,
		history:        cfg.History,
		historyTimeout: cfg.HistoryTimeout,
		autoDelay:      cfg.AutoTranslateDelay,
		events:         make(chan envelope, eventBuffer),
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
	}

	switch cfg.Kind {
	case Blind:
		s.mode = newBlindLesson(cfg.Lesson)
	case Motor:
		s.detector = gesture.NewDetector(cfg.Clock)
		s.mode = newMotorPilot(s.detector)
	case Deaf:
		if cfg.Translator == nil {
			cancel()
			return nil, errors.New("deaf session requires a translator")
		}
		s.board = &deafBoard{signs: NewSignBuffer(cfg.MinConfidence)}
		s.mode = s.board
	default:
		cancel()
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, cfg.Kind)
	}

	var err error
	if name := s.mode.vocabulary(); name != "" {
		if s.vocab, err = cfg.Vocabularies.Get(name); err != nil {
			cancel()
			return nil, err
		}
	}
	if s.confirm, err = cfg.Vocabularies.Get(command.Confirm); err != nil {
		cancel()
		return nil, err
	}

	s.ctrl = turntaking.NewController(
		log,
		cfg.Token,
		&remoteInput{
			supported: cfg.Capabilities.SpeechInput,
			idle:      s.mode.vocabulary() == "",
			emit:      s.emit,
		},
		&remoteOutput{supported: cfg.Capabilities.SpeechOutput, emit: s.emit},
		s.mode.voice(),
	)
	s.snapshot.Store(s.buildSnapshot())

	s.events <- envelope{ev: Event{Kind: eventEnter}}
	return s, nil
}

func (s *Session) ID() string { return s.id }
func (s *Session) Kind() Kind { return s.kind }
func (s *Session) Token() uint64 { return s.token }
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Snapshot() Snapshot {
	return *s.snapshot.Load()
}

// Start launches the event loop. The first thing it does is enter the mode.
func (s *Session) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

// Close tears the session down and waits for the loop to exit.
func (s *Session) Close() {
	s.cancel()
	s.Start()
	<-s.done
}

// Post queues an event without waiting for it to be handled.
func (s *Session) Post(ev Event) error {
	if s.ctx.Err() != nil {
		return ErrSessionClosed
	}
	select {
	case s.events <- envelope{ev: ev}:
		return nil
	case <-s.ctx.Done():
		return ErrSessionClosed
	}
}

// Do queues an event and waits until the loop has handled it.
func (s *Session) Do(ctx context.Context, ev Event) error {
	if s.ctx.Err() != nil {
		return ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	reply := make(chan error, 1)
	select {
	case s.events <- envelope{ev: ev, reply: reply}:
	case <-s.ctx.Done():
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-s.done:
		select {
		case err := <-reply:
			return err
		default:
			return ErrSessionClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sync returns once every event queued before it has been handled.
func (s *Session) Sync(ctx context.Context) error {
	return s.Do(ctx, Event{Kind: eventSync})
}

func (s *Session) run() {
	defer close(s.done)

	s.log.WithFields(logrus.Fields{
		"session_id": s.id,
		"mode":       s.kind,
	}).Info("Mode session started")

	for {
		select {
		case <-s.ctx.Done():
			s.teardown()
			return
		case env := <-s.events:
			var err error
			if s.ctx.Err() != nil {
				err = ErrSessionClosed
			} else {
				err = s.handle(env.ev)
			}
			if env.reply != nil {
				env.reply <- err
			}
		}
	}
}

func (s *Session) handle(ev Event) error {
	if ev.Token != 0 && ev.Token != s.token {
		s.log.WithFields(logrus.Fields{
			"session_id": s.id,
			"kind":       ev.Kind,
			"token":      ev.Token,
		}).Debug("Dropping stale event")
		return ErrStaleToken
	}

	before := s.snapshot.Load()
	err := s.dispatch(ev)
	after := s.buildSnapshot()
	s.snapshot.Store(after)
	if !reflect.DeepEqual(before, after) {
		s.emit(Directive{Type: DirectiveState, State: after})
	}

	if err != nil {
		s.log.WithFields(logrus.Fields{
			"session_id": s.id,
			"kind":       ev.Kind,
			"error":      err.Error(),
		}).Warn("Mode session event rejected")
	}
	return err
}

func (s *Session) dispatch(ev Event) error {
	switch ev.Kind {
	case eventEnter:
		u, err := s.ctrl.EnterMode(s.mode.intro())
		if errors.Is(err, turntaking.ErrUnsupportedCapability) {
			s.emit(Directive{Type: DirectiveNotice, Text: u.Text})
			return nil
		}
		return err

	case EventTranscript:
		s.onTranscript(ev.Text)
		return nil

	case EventSpeechDone:
		s.ctrl.OnSynthesisDone(ev.UtteranceID)
		return nil

	case EventGesture:
		sig := confirmation.ParseSignal(ev.Gesture)
		if sig == confirmation.SignalNone {
			return fmt.Errorf("%w: gesture %q", ErrInvalidEvent, ev.Gesture)
		}
		s.onGesture(sig)
		return nil

	case EventHead:
		if s.detector == nil {
			return fmt.Errorf("%w: %s", ErrUnsupported, ev.Kind)
		}
		if sig := s.detector.Observe(ev.X, ev.Y); sig != confirmation.SignalNone {
			s.onGesture(sig)
		}
		return nil

	case EventManual:
		sym, ok := command.ParseSymbol(ev.Command)
		if !ok {
			return fmt.Errorf("%w: command %q", ErrInvalidEvent, ev.Command)
		}
		return s.onManual(sym)

	case EventToken, EventTokenUndo, EventTokensClear, EventTranslate, eventAutoTranslate:
		if s.board == nil {
			return fmt.Errorf("%w: %s", ErrUnsupported, ev.Kind)
		}
		return s.onSigns(ev)

	case EventStop:
		s.cancel()
		return nil

	case eventSync:
		return nil
	}

	return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind)
}

func (s *Session) onTranscript(text string) {
	normalized, ok := s.ctrl.OnTranscriptUpdate(text)
	if !ok {
		return
	}

	if s.gate.Blocks() {
		sig := confirmation.ParseUtterance(normalized, s.confirm)
		if sig == confirmation.SignalNone {
			s.ctrl.Resume(false)
			return
		}
		s.resolve(sig, normalized)
		return
	}

	entry, ok := s.vocab.Recognize(normalized)
	if !ok {
		s.ctrl.Resume(false)
		return
	}
	s.runEntry(entry, normalized)
}

func (s *Session) onManual(sym command.Symbol) error {
	input := "manual " + sym.String()

	if s.gate.Blocks() {
		if sig := confirmation.SignalFromSymbol(sym); sig != confirmation.SignalNone {
			s.resolve(sig, input)
			return nil
		}
		s.emitError("CONFIRMATION_PENDING", "Please answer yes or no first.")
		return confirmation.ErrPending
	}
	if sym == command.Yes || sym == command.No {
		return nil
	}

	entry, ok := s.vocab.Lookup(sym)
	if !ok {
		return fmt.Errorf("%w: command %s", ErrUnsupported, sym)
	}
	s.runEntry(entry, input)
	return nil
}

func (s *Session) onGesture(sig confirmation.Signal) {
	s.latch.Set(sig)
	if !s.gate.Blocks() {
		return
	}
	s.resolve(s.latch.Take(), "gesture "+sig.String())
}

func (s *Session) runEntry(entry command.Entry, input string) {
	s.lastCommand = entry.Symbol
	s.emit(Directive{Type: DirectiveCommand, Command: entry.Symbol, Text: input})

	if !entry.RequiresConfirmation {
		s.perform(entry.Symbol, input)
		return
	}

	prompt := entry.Prompt
	if prompt == "" {
		prompt = defaultPrompt
	}
	p, err := s.gate.Require(entry.Symbol, prompt)
	if err != nil {
		s.ctrl.Resume(true)
		return
	}
	// Only gestures made after the prompt count as an answer.
	s.latch.Clear()
	s.emit(Directive{Type: DirectiveConfirmPrompt, Pending: &p})
	s.say(prompt)
}

func (s *Session) resolve(sig confirmation.Signal, input string) {
	res, ok := s.gate.Resolve(sig)
	if !ok {
		s.ctrl.Resume(false)
		return
	}

	confirmed := res.Confirmed
	s.emit(Directive{Type: DirectiveConfirmResolved, Pending: &res.Action, Confirmed: &confirmed})

	if confirmed {
		s.perform(res.Action.Action, input)
		return
	}
	s.say(cancelledSpeech)
	s.record(input, res.Action.Action.String()+" cancelled")
}

func (s *Session) perform(sym command.Symbol, input string) {
	out, ok := s.mode.execute(sym)
	if !ok {
		s.ctrl.Resume(true)
		return
	}

	if out.effect != nil {
		s.emit(Directive{Type: DirectiveEffect, Command: sym, Effect: out.effect})
	}

	switch {
	case out.silence:
		s.ctrl.Silence()
	case out.speech != "":
		s.say(out.speech)
	default:
		s.ctrl.Resume(true)
	}

	result := out.speech
	if result == "" {
		result = sym.String()
	}
	s.record(input, result)
}

func (s *Session) onSigns(ev Event) error {
	signs := s.board.signs

	switch ev.Kind {
	case EventToken:
		confidence := ev.Confidence
		// Zero means the recognizer did not report a confidence.
		if confidence == 0 {
			confidence = 1
		}
		if _, ok := signs.Add(ev.Symbol, confidence, s.clock()); !ok {
			return fmt.Errorf("%w: empty sign", ErrInvalidEvent)
		}
		s.armAutoTranslate()
	case EventTokenUndo:
		if signs.Undo() {
			s.armAutoTranslate()
		}
	case EventTokensClear:
		signs.Clear()
		s.board.last = nil
		s.stopTimer()
	case EventTranslate:
		s.stopTimer()
		s.translate()
	case eventAutoTranslate:
		if ev.revision != signs.Revision() {
			return nil
		}
		s.translate()
	}
	return nil
}

func (s *Session) translate() {
	tokens := s.board.signs.Confident()

	res, err := s.translator.Reconstruct(s.ctx, tokens)
	if err != nil {
		if errors.Is(err, oracle.ErrLowConfidence) {
			s.emitError("LOW_CONFIDENCE", lowConfidenceMessage)
			return
		}
		s.log.WithFields(logrus.Fields{
			"session_id": s.id,
			"error":      err.Error(),
		}).Error("Sentence reconstruction failed")
		s.emitError("TRANSLATION_FAILED", "Error in translation.")
		return
	}

	s.board.last = &res
	s.emit(Directive{Type: DirectiveTranslation, Translation: &res})
	s.say(res.Sentence)
	s.record(strings.Join(tokens, " "), res.Sentence)
}

func (s *Session) armAutoTranslate() {
	s.stopTimer()
	if s.autoDelay <= 0 || s.board.signs.Len() == 0 {
		return
	}
	rev := s.board.signs.Revision()
	s.timer = time.AfterFunc(s.autoDelay, func() {
		_ = s.Post(Event{Kind: eventAutoTranslate, revision: rev})
	})
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) say(text string) {
	u, err := s.ctrl.Speak(text)
	switch {
	case errors.Is(err, turntaking.ErrUnsupportedCapability):
		s.emit(Directive{Type: DirectiveNotice, Text: u.Text})
	case err != nil:
		s.log.WithFields(logrus.Fields{
			"session_id": s.id,
			"error":      err.Error(),
		}).Warn("Failed to speak")
	}
}

func (s *Session) record(input, output string) {
	if s.history == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.historyTimeout)
	defer cancel()

	err := s.history.Record(ctx, entity.History{
		Input:     input,
		Output:    output,
		Mode:      string(s.kind),
		CreatedAt: s.clock(),
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"session_id": s.id,
			"mode":       s.kind,
			"error":      err.Error(),
		}).Warn("Failed to record history")
		s.emitError("PERSISTENCE_FAILED", "History not saved.")
	}
}

func (s *Session) teardown() {
	s.stopTimer()
	s.ctrl.Stop()
	s.gate.Cancel()
	s.latch.Clear()
	if s.detector != nil {
		s.detector.Reset()
	}

	snap := s.buildSnapshot()
	snap.Closed = true
	s.snapshot.Store(snap)
	s.emit(Directive{Type: DirectiveState, State: snap})

	s.log.WithFields(logrus.Fields{
		"session_id": s.id,
		"mode":       s.kind,
	}).Info("Mode session closed")
}

func (s *Session) buildSnapshot() *Snapshot {
	snap := &Snapshot{
		ID:          s.id,
		Mode:        s.kind,
		Token:       s.token,
		Listening:   s.ctrl.Snapshot(),
		LastCommand: s.lastCommand,
		Closed:      s.ctx.Err() != nil,
	}
	if p, ok := s.gate.Pending(); ok {
		snap.Pending = &p
	}
	s.mode.fill(snap)
	return snap
}

func (s *Session) emit(d Directive) {
	d.Token = s.token
	s.sink.Emit(d)
}

func (s *Session) emitError(code, message string) {
	s.emit(Directive{Type: DirectiveError, Error: &ErrorInfo{Code: code, Message: message}})
}
