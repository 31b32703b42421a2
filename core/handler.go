package core

import "context"

// IService is a long-lived component started and stopped by the runner.
type IService interface {
	Init(ctx context.Context) error // Starts the service; ctx bounds its lifetime.
	Cleanup() error                 // Releases resources. Must be safe to call once after Init.
}

// IResettable is implemented by services that can drop transient state without stopping.
type IResettable interface {
	Reset() error
}
