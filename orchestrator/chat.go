package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"convokit/core"
	"convokit/events/capture"
	"convokit/events/chat"
	"convokit/store"
)

// Send appends text as a user message and asks the assistant for a reply. Whitespace-only text is
// rejected with ErrEmptyInput and touches nothing. Send returns once the user message is in the
// history; the reply arrives later.
func (o *Orchestrator) Send(text string) error {
	return o.do(func() error { return o.startSend(text) })
}

func (o *Orchestrator) startSend(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}

	o.clearError()
	msg := o.appendMessage(core.SenderUser, text)
	lang := o.store.State().Language
	o.sends[text]++
	o.notify(&chat.SendStartedEvent{MessageID: msg.ID})

	o.background(func(ctx context.Context) func() {
		reply, err := o.assistant.Respond(ctx, text, lang)
		if err == nil && strings.TrimSpace(reply) == "" {
			err = errors.New("assistant returned an empty response")
		}
		return func() { o.finishSend(msg, text, lang, reply, err) }
	})
	return nil
}

func (o *Orchestrator) finishSend(request core.Message, text string, lang core.Language, reply string, err error) {
	if o.sends[text]--; o.sends[text] <= 0 {
		delete(o.sends, text)
	}
	if err != nil {
		o.reportError(core.ErrorKindTransport, msgChatFailed, err)
		o.notify(&chat.SendFinishedEvent{MessageID: request.ID, OK: false})
		return
	}

	answer := o.appendMessage(core.SenderAssistant, reply)
	o.renderer.Start(answer.ID, reply)
	if o.store.State().VoiceOutputEnabled {
		o.speech.SpeakAsync(o.ctx, reply, lang)
	}
	o.notify(&chat.SendFinishedEvent{MessageID: request.ID, OK: true})
}

// SelectAttachment makes a the pending attachment. Oversized or unsupported files are reported
// and leave the previous selection in place.
func (o *Orchestrator) SelectAttachment(a Attachment) error {
	return o.do(func() error {
		if o.uploading {
			return ErrUploadInProgress
		}
		if err := o.config.checkAttachment(a); err != nil {
			message := msgAttachmentType
			if errors.Is(err, ErrAttachmentTooLarge) {
				message = msgAttachmentTooBig
			}
			o.reportError(core.ErrorKindValidation, message, err)
			return err
		}
		o.mu.Lock()
		o.pending = &a
		o.mu.Unlock()
		o.notify(&chat.AttachmentChangedEvent{Name: a.Name, Size: a.Size})
		return nil
	})
}

// DiscardAttachment drops the pending attachment.
func (o *Orchestrator) DiscardAttachment() error {
	return o.do(func() error {
		if o.uploading {
			return ErrUploadInProgress
		}
		o.mu.Lock()
		o.pending = nil
		o.mu.Unlock()
		o.notify(&chat.AttachmentChangedEvent{})
		return nil
	})
}

// Upload sends the pending attachment. Only one upload runs at a time; a failed upload keeps the
// attachment pending for retry or discard.
func (o *Orchestrator) Upload() error {
	return o.do(func() error {
		o.mu.RLock()
		pending := o.pending
		o.mu.RUnlock()
		if pending == nil {
			return ErrNoAttachment
		}
		if o.uploading {
			return ErrUploadInProgress
		}

		a := *pending
		o.uploading = true
		o.clearError()
		o.notify(&chat.AttachmentChangedEvent{Name: a.Name, Size: a.Size, Uploading: true})

		lang := o.store.State().Language
		o.background(func(ctx context.Context) func() {
			ack, err := o.uploadAttachment(ctx, a, lang)
			return func() { o.finishUpload(a, ack, err) }
		})
		return nil
	})
}

func (o *Orchestrator) uploadAttachment(ctx context.Context, a Attachment, lang core.Language) (string, error) {
	content, err := a.Open()
	if err != nil {
		return "", fmt.Errorf("open attachment: %w", err)
	}
	defer content.Close()
	return o.uploader.Upload(ctx, a.Name, content, lang)
}

func (o *Orchestrator) finishUpload(a Attachment, ack string, err error) {
	o.uploading = false
	if err != nil {
		o.reportError(core.ErrorKindTransport, msgUploadFailed, err)
		o.notify(&chat.AttachmentChangedEvent{Name: a.Name, Size: a.Size})
		return
	}

	o.logger.Info("attachment uploaded", "name", a.Name, "ack", ack)
	confirmation := o.appendMessage(core.SenderAssistant, "File uploaded successfully: "+a.Name)
	o.renderer.Start(confirmation.ID, confirmation.Text)
	o.mu.Lock()
	o.pending = nil
	o.mu.Unlock()
	o.notify(&chat.AttachmentChangedEvent{})
}

// ToggleCapture flips the capture flag and drives the capture session from it. Once the device is
// known to be missing the flag stays off and ErrCaptureUnavailable is returned.
func (o *Orchestrator) ToggleCapture() error {
	return o.do(func() error {
		if o.captureUnavailable {
			return ErrCaptureUnavailable
		}
		state := o.store.Dispatch(store.ToggleCapture{})
		o.captureToggles++
		o.capture.SetActive(state.CaptureActive, state.Language.Tag())
		return nil
	})
}

func (o *Orchestrator) handleTranscript(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if o.sends[text] > 0 {
		o.logger.Debug("transcript already being sent", "text", text)
		return
	}
	_ = o.startSend(text)
}

func (o *Orchestrator) handleCaptureEnded(e *capture.CaptureEndedEvent) {
	if !e.DeviceInitiated {
		return
	}
	// Only the session the flag currently refers to may switch it off.
	if e.Session == o.captureSession && o.captureToggles == o.captureSessionMark {
		o.resetCaptureFlag()
	}
}

func (o *Orchestrator) resetCaptureFlag() {
	if o.store.State().CaptureActive {
		o.store.Dispatch(store.ToggleCapture{})
	}
}
