package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"AccessAI/internal/api/session"
	"AccessAI/internal/mode"
	websocketPkg "AccessAI/pkg/websocket"

	"github.com/spf13/cobra"
)

const sessionHelp = `Commands:
  say TEXT            send a transcript
  done                report the last utterance as spoken
  yes | no            send a confirmation gesture
  cmd NAME            send a manual command (NEXT, BACK, READ, ...)
  head X Y            send a head cursor sample (0-100)
  sign SYMBOL [CONF]  add a sign token
  undo | clear        edit the sign buffer
  translate           translate the sign buffer
  stop                end the session
  quit                disconnect`

var errQuit = errors.New("quit")

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Drive a live mode session over websocket",
		Long: "Opens /api/session/ws and prints every directive the server sends.\n\n" + sessionHelp,
		Args:  cobra.NoArgs,
		RunE:  runSession,
	}
	cmd.Flags().String("url", "http://localhost:5000", "server base address")
	cmd.Flags().String("mode", string(mode.Blind), "session mode: DEAF, BLIND or MOTOR")
	cmd.Flags().Bool("speech-input", true, "client can recognize speech")
	cmd.Flags().Bool("speech-output", true, "client can synthesize speech")
	cmd.Flags().Bool("auto-done", true, "acknowledge every utterance as soon as it arrives")
	return cmd
}

func runSession(cmd *cobra.Command, _ []string) error {
	base, _ := cmd.Flags().GetString("url")
	kind, _ := cmd.Flags().GetString("mode")
	speechIn, _ := cmd.Flags().GetBool("speech-input")
	speechOut, _ := cmd.Flags().GetBool("speech-output")
	autoDone, _ := cmd.Flags().GetBool("auto-done")

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	client, err := websocketPkg.DialSession(ctx, base, kind, mode.Capabilities{SpeechInput: speechIn, SpeechOutput: speechOut})
	cancel()
	if err != nil {
		return err
	}
	defer client.Close()

	out := cmd.OutOrStdout()
	var lastUtterance atomic.Uint64
	closed := make(chan struct{})

	go func() {
		defer close(closed)
		for {
			d, err := client.Next(0)
			if err != nil {
				return
			}
			fmt.Fprintln(out, describe(d))

			if d.Type == mode.DirectiveSpeak && d.Utterance != nil {
				lastUtterance.Store(d.Utterance.ID)
				if autoDone {
					_ = client.Send(session.EventRequest{Type: string(mode.EventSpeechDone), UtteranceID: d.Utterance.ID})
				}
			}
			if d.Type == mode.DirectiveState && d.State != nil && d.State.Closed {
				return
			}
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-closed:
			fmt.Fprintln(out, "session closed")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			ev, err := parseLine(line, lastUtterance.Load())
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			if ev.Type == "" {
				continue
			}
			if err := client.Send(ev); err != nil {
				return err
			}
		}
	}
}

// parseLine turns one REPL line into an event. An empty event means there is
// nothing to send.
func parseLine(line string, lastUtterance uint64) (session.EventRequest, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return session.EventRequest{}, nil
	}
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))

	switch strings.ToLower(fields[0]) {
	case "say":
		if rest == "" {
			return session.EventRequest{}, errors.New("say needs some text")
		}
		return session.EventRequest{Type: string(mode.EventTranscript), Text: rest}, nil
	case "done":
		if lastUtterance == 0 {
			return session.EventRequest{}, errors.New("nothing is being spoken")
		}
		return session.EventRequest{Type: string(mode.EventSpeechDone), UtteranceID: lastUtterance}, nil
	case "yes", "no":
		return session.EventRequest{Type: string(mode.EventGesture), Value: strings.ToUpper(fields[0])}, nil
	case "cmd":
		if len(fields) != 2 {
			return session.EventRequest{}, errors.New("usage: cmd NAME")
		}
		return session.EventRequest{Type: string(mode.EventManual), Command: strings.ToUpper(fields[1])}, nil
	case "head":
		if len(fields) != 3 {
			return session.EventRequest{}, errors.New("usage: head X Y")
		}
		x, errX := strconv.ParseFloat(fields[1], 64)
		y, errY := strconv.ParseFloat(fields[2], 64)
		if errX != nil || errY != nil {
			return session.EventRequest{}, errors.New("head needs numeric coordinates")
		}
		return session.EventRequest{Type: string(mode.EventHead), X: x, Y: y}, nil
	case "sign":
		if len(fields) < 2 || len(fields) > 3 {
			return session.EventRequest{}, errors.New("usage: sign SYMBOL [CONF]")
		}
		ev := session.EventRequest{Type: string(mode.EventToken), Symbol: fields[1]}
		if len(fields) == 3 {
			c, err := strconv.ParseFloat(fields[2], 64)
			if err != nil || c < 0 || c > 1 {
				return session.EventRequest{}, errors.New("confidence must be between 0 and 1")
			}
			ev.Confidence = c
		}
		return ev, nil
	case "undo":
		return session.EventRequest{Type: string(mode.EventTokenUndo)}, nil
	case "clear":
		return session.EventRequest{Type: string(mode.EventTokensClear)}, nil
	case "translate":
		return session.EventRequest{Type: string(mode.EventTranslate)}, nil
	case "stop":
		return session.EventRequest{Type: string(mode.EventStop)}, nil
	case "quit", "exit":
		return session.EventRequest{}, errQuit
	case "help":
		return session.EventRequest{}, errors.New(sessionHelp)
	}
	return session.EventRequest{}, fmt.Errorf("unknown command %q, try help", fields[0])
}

func describe(d mode.Directive) string {
	switch d.Type {
	case mode.DirectiveSpeak:
		if d.Utterance != nil {
			return fmt.Sprintf("speak #%d: %s", d.Utterance.ID, d.Utterance.Text)
		}
	case mode.DirectiveListenStart:
		return fmt.Sprintf("listen_start continuous=%t", d.Continuous)
	case mode.DirectiveCommand:
		return "command " + d.Command.String()
	case mode.DirectiveConfirmPrompt:
		if d.Pending != nil {
			return fmt.Sprintf("confirm %s: %s", d.Pending.Action, d.Pending.Prompt)
		}
	case mode.DirectiveConfirmResolved:
		if d.Confirmed != nil {
			return fmt.Sprintf("confirm_resolved confirmed=%t", *d.Confirmed)
		}
	case mode.DirectiveEffect:
		if d.Effect != nil {
			return fmt.Sprintf("effect %s dy=%d x=%.1f y=%.1f section=%d", d.Effect.Action, d.Effect.DY, d.Effect.X, d.Effect.Y, d.Effect.Section)
		}
	case mode.DirectiveTranslation:
		if d.Translation != nil {
			return fmt.Sprintf("translation [%s]: %s", d.Translation.Quality, d.Translation.Sentence)
		}
	case mode.DirectiveError:
		if d.Error != nil {
			return fmt.Sprintf("error %s: %s", d.Error.Code, d.Error.Message)
		}
	case mode.DirectiveState:
		if d.State != nil {
			return fmt.Sprintf("state listening=%s closed=%t", d.State.Listening.State, d.State.Closed)
		}
	case mode.DirectiveNotice:
		return "notice: " + d.Text
	}
	return string(d.Type)
}
