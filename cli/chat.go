package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"convokit/bridge"
	"convokit/core"
	"convokit/events/capture"
	"convokit/events/chat"
	"convokit/events/playback"
	"convokit/factories"
	"convokit/handlers/typewriter"
	"convokit/orchestrator"
	"convokit/runner"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const chatHelp = `commands:
  /mic              toggle voice input
  /voice            toggle spoken replies
  /stop             stop the current reply audio
  /attach <path>    select a document
  /upload [path]    upload the selected (or given) document
  /discard          drop the selected document
  /dark             toggle dark mode
  /lang <name>      reply language (%s)
  /ui-lang <name>   interface language
  /dismiss          clear the last error
  /logout           forget the signed-in user
  /quit             leave

replies print whole here; the typewriter reveal is sent to bridge clients (convokit serve)`

func newChatCmd(a *app) *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive conversation in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runChat(ctx, language)
		},
	}
	cmd.Flags().StringVar(&language, "lang", "", "initial reply language")
	return cmd
}

func (a *app) runChat(ctx context.Context, language string) error {
	conversationID := uuid.New().String()[:8]
	logger, closeLog := a.conversationLogger(conversationID, "")
	defer closeLog()

	components, err := factories.Build(a.settings, logger)
	if err != nil {
		return err
	}
	r := runner.NewRunner(components.Services, logger)
	if err := r.Start(ctx); err != nil {
		return err
	}
	defer r.Stop()

	orch := components.Orchestrator
	if language != "" {
		if err := orch.SetLanguage(language); err != nil {
			return err
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            promptColor.Sprint("> "),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistoryFile:       filepath.Join(os.TempDir(), "convokit.history"),
		HistorySearchFold: true,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	term := newTerminal(rl.Stdout(), a.settings.Orchestrator.Typewriter.StripChars)
	orch.Observe(term.render)
	term.banner(orch.State().Identity, orch.State().Language, conversationID)

	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if err != nil {
			return nil
		}
		quit, err := term.handleLine(orch, line)
		if err != nil {
			term.failure(err)
		}
		if quit {
			return nil
		}
	}
}

// terminal renders orchestrator events as plain lines and turns prompt input into intents.
type terminal struct {
	out        io.Writer
	stripChars string

	mu    sync.Mutex
	typed map[string]int // texts typed at the prompt whose echo is suppressed
}

func newTerminal(out io.Writer, stripChars string) *terminal {
	return &terminal{out: out, stripChars: stripChars, typed: make(map[string]int)}
}

func (t *terminal) banner(identity *core.Identity, language core.Language, conversationID string) {
	who := "guest"
	if identity != nil {
		who = identity.DisplayName
	}
	title(t.out, "CONVOKIT [%s %s] (%s) %s", identity.Initial(), who, language, conversationID)
	status(t.out, "type /help for commands")
}

func (t *terminal) failure(err error) {
	// Rejected attachments already reached the error slot.
	if errors.Is(err, orchestrator.ErrAttachmentTooLarge) || errors.Is(err, orchestrator.ErrUnsupportedAttachment) {
		return
	}
	errorLine(t.out, "error: %v", err)
}

func (t *terminal) render(event core.IEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e := event.(type) {
	case *chat.MessageAppendedEvent:
		text := e.Message.Text
		if e.Message.Sender == core.SenderAssistant {
			aiOutput(t.out, typewriter.CleanText(text, t.stripChars))
			return
		}
		if n := t.typed[text]; n > 0 {
			if t.typed[text] = n - 1; t.typed[text] == 0 {
				delete(t.typed, text)
			}
			return
		}
		userInput(t.out, text)
	case *core.ErrorReportedEvent:
		errorLine(t.out, "%s", e.Message)
	case *chat.AttachmentChangedEvent:
		switch {
		case e.Uploading:
			status(t.out, "uploading %s...", e.Name)
		case e.Name != "":
			status(t.out, "selected %s (%d bytes)", e.Name, e.Size)
		}
	case *capture.CaptureStartedEvent:
		status(t.out, "listening...")
	case *capture.CaptureInterimEvent:
		status(t.out, "  %s", e.Text)
	case *capture.CaptureEndedEvent:
		status(t.out, "microphone off")
	case *playback.PlaybackStartedEvent:
		status(t.out, "speaking (/stop to interrupt)")
	}
}

// handleLine runs one prompt line. quit is true when the user asked to leave.
func (t *terminal) handleLine(intents bridge.IIntents, line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		t.mu.Lock()
		t.typed[line]++
		t.mu.Unlock()
		if err := intents.Send(line); err != nil {
			t.mu.Lock()
			if t.typed[line]--; t.typed[line] <= 0 {
				delete(t.typed, line)
			}
			t.mu.Unlock()
			if errors.Is(err, orchestrator.ErrEmptyInput) {
				return false, nil
			}
			return false, err
		}
		return false, nil
	}

	command, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch command {
	case "help":
		names := make([]string, 0, len(core.Languages()))
		for _, l := range core.Languages() {
			names = append(names, string(l))
		}
		status(t.out, chatHelp, strings.Join(names, ", "))
	case "quit", "exit":
		return true, nil
	case "mic":
		err = intents.ToggleCapture()
	case "voice":
		if err = intents.ToggleVoiceOutput(); err == nil {
			status(t.out, "spoken replies %s", onOff(intents.State().VoiceOutputEnabled))
		}
	case "stop":
		err = intents.StopSpeech()
	case "attach":
		err = t.attach(intents, arg)
	case "upload":
		if arg != "" {
			if err = t.attach(intents, arg); err != nil {
				return false, err
			}
		}
		err = intents.Upload()
	case "discard":
		err = intents.DiscardAttachment()
	case "dark":
		if err = intents.ToggleDarkMode(); err == nil {
			status(t.out, "dark mode %s", onOff(intents.State().DarkMode))
		}
	case "lang":
		if err = intents.SetLanguage(arg); err == nil {
			status(t.out, "replies in %s", intents.State().Language)
		}
	case "ui-lang":
		if err = intents.SetInterfaceLanguage(arg); err == nil {
			status(t.out, "interface in %s", intents.State().InterfaceLanguage)
		}
	case "dismiss":
		err = intents.DismissError()
	case "logout":
		if err = intents.SignOut(); err == nil {
			status(t.out, "signed out")
		}
	default:
		err = fmt.Errorf("unknown command /%s, try /help", command)
	}
	return false, err
}

func (t *terminal) attach(intents bridge.IIntents, path string) error {
	if path == "" {
		return errors.New("usage: /attach <path>")
	}
	a, err := orchestrator.FileAttachment(path)
	if err != nil {
		return err
	}
	return intents.SelectAttachment(a)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
