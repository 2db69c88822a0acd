package mode

import (
	"AccessAI/pkg/turntaking"
)

// The speech engines live on the client. These adapters translate controller
// calls into directives; results come back as transcript and speech_done
// events.

// A mode without a command vocabulary never opens the microphone; its
// recognizer stays idle and emits nothing.
type remoteInput struct {
	supported bool
	idle      bool
	emit      func(Directive)
}

func (r *remoteInput) Supported() bool { return r.supported }

func (r *remoteInput) Start(continuous bool) error {
	if r.idle {
		return nil
	}
	r.emit(Directive{Type: DirectiveListenStart, Continuous: continuous})
	return nil
}

func (r *remoteInput) Stop() {
	if r.idle {
		return
	}
	r.emit(Directive{Type: DirectiveListenStop})
}

func (r *remoteInput) ResetTranscript() {
	if r.idle {
		return
	}
	r.emit(Directive{Type: DirectiveTranscriptReset})
}

type remoteOutput struct {
	supported bool
	emit      func(Directive)
}

func (r *remoteOutput) Supported() bool { return r.supported }

func (r *remoteOutput) Speak(u turntaking.Utterance) error {
	r.emit(Directive{Type: DirectiveSpeak, Utterance: &u})
	return nil
}

func (r *remoteOutput) Cancel() {
	r.emit(Directive{Type: DirectiveSpeechCancel})
}
