package orchestrator

import (
	"errors"

	capturehandler "convokit/handlers/capture"
)

var (
	ErrEmptyInput            = errors.New("message is empty")
	ErrAttachmentTooLarge    = errors.New("attachment exceeds the size limit")
	ErrUnsupportedAttachment = errors.New("attachment type is not supported")
	ErrNoAttachment          = errors.New("no attachment selected")
	ErrUploadInProgress      = errors.New("an upload is already in progress")
	ErrAlreadySignedIn       = errors.New("already signed in")
	ErrUnknownLanguage       = errors.New("unknown language")
	ErrClosed                = errors.New("orchestrator closed")

	ErrCaptureUnavailable = capturehandler.ErrCaptureUnavailable
)

// User-visible error slot texts.
const (
	msgChatFailed        = "Failed to connect to the chat server. Please ensure the backend is running."
	msgUploadFailed      = "Failed to upload file. Please ensure the backend server is running."
	msgAttachmentTooBig  = "File size should not exceed 10MB"
	msgAttachmentType    = "Unsupported file type"
	msgCaptureMissing    = "Speech recognition is not supported on this device"
	msgCaptureFailed     = "Could not start speech recognition"
	msgPlaybackFailed    = "Failed to play the response audio"
	msgAuthFailed        = "Authentication failed"
	msgIdentityNotStored = "Signed in, but the session could not be remembered"
)
