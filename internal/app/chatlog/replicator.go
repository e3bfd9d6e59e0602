package chatlog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/PabloGalante/farum-chat/internal/domain"
	"github.com/PabloGalante/farum-chat/internal/observability"
)

const defaultPersistTimeout = 5 * time.Second

// Replicator mirrors the in-memory log into a DurableStore, best effort.
//
// Every operation runs once in its own goroutine with its own timeout and is
// detached from the caller's context. Failures are logged and dropped, and the
// order in which writes land is not guaranteed. After Close, new operations
// are dropped.
type Replicator struct {
	store   domain.DurableStore
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewReplicator(store domain.DurableStore, timeout time.Duration) *Replicator {
	if timeout <= 0 {
		timeout = defaultPersistTimeout
	}
	return &Replicator{store: store, timeout: timeout}
}

// Configured reports whether a durable backend is attached.
func (r *Replicator) Configured() bool {
	return r.store != nil
}

// Write schedules a durable write of msg.
func (r *Replicator) Write(msg *domain.Message) {
	r.run("write", msg.SessionID, msg.ID, func(ctx context.Context) error {
		return r.store.WriteMessage(ctx, msg.SessionID, msg)
	})
}

// Delete schedules removal of a session's durable history.
func (r *Replicator) Delete(sessionID domain.SessionID) {
	r.run("delete", sessionID, "", func(ctx context.Context) error {
		return r.store.DeleteHistory(ctx, sessionID)
	})
}

func (r *Replicator) run(op string, sessionID domain.SessionID, msgID domain.MessageID, fn func(context.Context) error) {
	if r.store == nil {
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		observability.WithFields("op", op, "session_id", sessionID, "message_id", msgID).
			Warn("durable replication dropped, replicator closed")
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		start := time.Now()
		err := fn(ctx)

		log := observability.WithFields("op", op, "session_id", sessionID, "message_id", msgID)
		if err != nil {
			log.Warn("durable replication failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
			return
		}
		log.Debug("durable replication done", "elapsed_ms", time.Since(start).Milliseconds())
	}()
}

// Close stops accepting operations and blocks until every scheduled one
// finished or ctx is done. It may be called again to keep waiting.
func (r *Replicator) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("replication still in flight"), ctx.Err())
	}
}
