package orchestrator

import (
	"context"
	"io"

	"convokit/core"
)

// IAssistant answers one user message.
type IAssistant interface {
	Respond(ctx context.Context, message string, language core.Language) (string, error)
}

// IUploader sends a document to the assistant backend and returns its acknowledgement.
type IUploader interface {
	Upload(ctx context.Context, name string, content io.Reader, language core.Language) (string, error)
}

// IAuthenticator is the client side of the user collection.
type IAuthenticator interface {
	Login(ctx context.Context, email, password string) (core.Identity, error)
	Signup(ctx context.Context, username, email, password string) (core.Identity, error)
}

// IIdentityStore remembers the signed-in identity across restarts. Load returns nil when nothing
// is remembered.
type IIdentityStore interface {
	Load(ctx context.Context) (*core.Identity, error)
	Save(ctx context.Context, identity core.Identity) error
	Clear(ctx context.Context) error
}
