package progress

import "context"

// Sink consumes batches of snapshots. Implementations must honor ctx
// deadlines and may be invoked concurrently.
type Sink interface {
	Consume(ctx context.Context, batch []Snapshot) error
	Close(ctx context.Context) error
}

// Emitter publishes individual snapshots.
type Emitter interface {
	Emit(s Snapshot)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Snapshot)

// Emit calls f(s).
func (f EmitterFunc) Emit(s Snapshot) { f(s) }
