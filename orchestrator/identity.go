package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"convokit/core"
	"convokit/store"
)

// SignIn records identity as the signed-in user and remembers it. It is rejected while someone is
// already signed in.
func (o *Orchestrator) SignIn(identity core.Identity) error {
	return o.do(func() error { return o.signIn(identity) })
}

func (o *Orchestrator) signIn(identity core.Identity) error {
	if o.store.State().SignedIn() {
		return ErrAlreadySignedIn
	}
	if err := o.identities.Save(o.ctx, identity); err != nil {
		o.reportError(core.ErrorKindStorage, msgIdentityNotStored, err)
	}
	o.store.Dispatch(store.SetIdentity{Identity: &identity})
	o.logger.Info("signed in", "user", identity.ID)
	return nil
}

// SignOut forgets the identity. The conversation history is kept.
func (o *Orchestrator) SignOut() error {
	return o.do(func() error {
		if err := o.identities.Clear(o.ctx); err != nil {
			o.reportError(core.ErrorKindStorage, "Failed to forget the signed-in user", err)
		}
		o.store.Dispatch(store.SetIdentity{Identity: nil})
		return nil
	})
}

// Restore signs the remembered identity back in, if there is one.
func (o *Orchestrator) Restore(ctx context.Context) error {
	return o.do(func() error {
		identity, err := o.identities.Load(ctx)
		if err != nil {
			return fmt.Errorf("load identity: %w", err)
		}
		if identity == nil || o.store.State().SignedIn() {
			return nil
		}
		o.store.Dispatch(store.SetIdentity{Identity: identity})
		o.logger.Info("restored identity", "user", identity.ID)
		return nil
	})
}

// Login authenticates against the user collection and signs the result in. The outcome is
// reported through the state and the error slot.
func (o *Orchestrator) Login(email, password string) error {
	return o.authenticate(func(ctx context.Context, auth IAuthenticator) (core.Identity, error) {
		return auth.Login(ctx, email, password)
	})
}

// Signup creates the user and signs it in.
func (o *Orchestrator) Signup(username, email, password string) error {
	return o.authenticate(func(ctx context.Context, auth IAuthenticator) (core.Identity, error) {
		return auth.Signup(ctx, username, email, password)
	})
}

func (o *Orchestrator) authenticate(call func(context.Context, IAuthenticator) (core.Identity, error)) error {
	if o.authenticator == nil {
		return errors.New("no authenticator configured")
	}
	return o.do(func() error {
		if o.store.State().SignedIn() {
			return ErrAlreadySignedIn
		}
		o.clearError()
		o.background(func(ctx context.Context) func() {
			identity, err := call(ctx, o.authenticator)
			return func() {
				if err != nil {
					o.reportError(core.ErrorKindAuth, fmt.Sprintf("%s: %v", msgAuthFailed, err), err)
					return
				}
				_ = o.signIn(identity)
			}
		})
		return nil
	})
}

// memoryIdentities keeps the identity for the process lifetime only.
type memoryIdentities struct {
	mu       sync.Mutex
	identity *core.Identity
}

func (m *memoryIdentities) Load(context.Context) (*core.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return nil, nil
	}
	identity := *m.identity
	return &identity, nil
}

func (m *memoryIdentities) Save(_ context.Context, identity core.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = &identity
	return nil
}

func (m *memoryIdentities) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = nil
	return nil
}
