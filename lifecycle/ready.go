package lifecycle

import (
	"sync"

	"github.com/harborstack/keel/discovery"
)

// readySignal is a single-assignment outcome: it resolves with the
// registered service descriptor or rejects with the first startup error,
// exactly once. Later resolutions and rejections are ignored.
type readySignal struct {
	once sync.Once
	ch   chan struct{}
	desc *discovery.ServiceDescriptor
	err  error
}

func newReadySignal() *readySignal {
	return &readySignal{ch: make(chan struct{})}
}

func (r *readySignal) resolve(desc *discovery.ServiceDescriptor) {
	r.once.Do(func() {
		r.desc = desc
		close(r.ch)
	})
}

func (r *readySignal) reject(err error) {
	r.once.Do(func() {
		r.err = err
		close(r.ch)
	})
}

// settled returns the assigned outcome. Valid only after ch is closed.
func (r *readySignal) settled() (*discovery.ServiceDescriptor, error) {
	return r.desc, r.err
}
