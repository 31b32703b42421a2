package orchestrator

import (
	"context"

	capturehandler "convokit/handlers/capture"
)

// missingDevice stands in when no capture device is configured.
type missingDevice struct{}

func (missingDevice) Available() error { return capturehandler.ErrCaptureUnavailable }

func (missingDevice) Open(context.Context, capturehandler.Options) (capturehandler.IDeviceSession, error) {
	return nil, capturehandler.ErrCaptureUnavailable
}
