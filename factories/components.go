package factories

import (
	"fmt"
	"os"
	"path/filepath"

	"convokit/core"
	"convokit/orchestrator"
	"convokit/persist"
	"convokit/runner"
	"convokit/services/backend"
)

// Components is a fully wired client.
type Components struct {
	Orchestrator *orchestrator.Orchestrator
	Backend      *backend.Client
	Identities   *persist.IdentityStore
	// Services are in start order. The runner cleans up in reverse, so the orchestrator stops
	// before the collaborators it calls and the identity file closes last.
	Services []core.IService
}

// Build constructs every collaborator from settings and hands them to a new orchestrator.
// Nothing is started; pass Services to a runner.
func Build(settings SettingsConfig, logger *core.Logger) (*Components, error) {
	if logger == nil {
		logger = core.GetLogger()
	}
	client := backend.NewClient(settings.Backend, logger)

	identities, err := OpenIdentities(settings.IdentityDB)
	if err != nil {
		return nil, err
	}

	assistant := BuildAssistant(settings.Assistant, client, logger)
	orch, err := orchestrator.New(orchestrator.Dependencies{
		Assistant:     assistant,
		Uploader:      client,
		Authenticator: client,
		Identities:    identities,
		Device:        BuildCaptureDevice(settings.Capture, logger),
		Synthesizer:   BuildSynthesizer(settings.Synthesizer, client, logger),
		Player:        BuildPlayer(settings.Player, logger),
	}, settings.Orchestrator, logger)
	if err != nil {
		identities.Close()
		return nil, err
	}

	services := []core.IService{runner.CleanupFunc(identities.Close)}
	if svc, ok := assistant.(core.IService); ok {
		services = append(services, svc)
	}
	services = append(services, orch)

	return &Components{
		Orchestrator: orch,
		Backend:      client,
		Identities:   identities,
		Services:     services,
	}, nil
}

// OpenIdentities opens the identity database, creating its directory first.
func OpenIdentities(path string) (*persist.IdentityStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("identity store: mkdir %q: %w", dir, err)
		}
	}
	store, err := persist.NewIdentityStore(path)
	if err != nil {
		return nil, fmt.Errorf("identity store: %w", err)
	}
	return store, nil
}
