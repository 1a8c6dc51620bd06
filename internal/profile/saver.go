package profile

import (
	"context"
	"log/slog"
	"sync"
)

// Pending is the handle of one background save.
type Pending struct {
	done chan struct{}
	err  error
}

// Done is closed once the save has finished or was skipped.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the save finishes or ctx is done.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the save error once finished, nil before that.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Saver writes profile snapshots in the background. Writes are serialized
// and a snapshot older than the last written one is skipped.
type Saver struct {
	store  *Store
	logger *slog.Logger

	mu  sync.Mutex
	seq uint64

	writeMu sync.Mutex
	written uint64

	wg sync.WaitGroup
}

// NewSaver returns a saver writing through store.
func NewSaver(store *Store, logger *slog.Logger) *Saver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Saver{store: store, logger: logger}
}

// Save snapshots p and writes it without blocking the caller.
func (s *Saver) Save(p *Profile) *Pending {
	if p.ID == "" {
		s.store.AssignID(p)
	}
	snap := p.Clone()

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	pending := &Pending{done: make(chan struct{})}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(pending.done)

		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		if seq < s.written {
			s.logger.Debug("skipping stale profile snapshot", "profile", snap.ID, "seq", seq)
			return
		}
		if err := s.store.Save(snap); err != nil {
			s.logger.Error("profile save failed", "profile", snap.ID, "err", err)
			pending.err = err
			return
		}
		s.written = seq
		s.logger.Debug("profile saved", "profile", snap.ID, "seq", seq)
	}()
	return pending
}

// Flush waits for every outstanding save or for ctx to be done.
func (s *Saver) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
