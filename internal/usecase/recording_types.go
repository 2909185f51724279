package usecase

import (
	"bytes"
	"sync"

	"medbridge/internal/ports"
)

type activeRecording struct {
	cancel  func()
	session ports.AudioSession

	stopTicks chan struct{}
	tickDone  chan struct{}
	pumpDone  chan error

	mu      sync.Mutex
	buffer  bytes.Buffer
	elapsed int
}

func newActiveRecording(cancel func(), session ports.AudioSession) *activeRecording {
	return &activeRecording{
		cancel:    cancel,
		session:   session,
		stopTicks: make(chan struct{}),
		tickDone:  make(chan struct{}),
		pumpDone:  make(chan error, 1),
	}
}

// Write appends one captured chunk.
func (r *activeRecording) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buffer.Write(p)
}

func (r *activeRecording) tick() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.elapsed++
	return r.elapsed
}

func (r *activeRecording) snapshot() ([]byte, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data := make([]byte, r.buffer.Len())
	copy(data, r.buffer.Bytes())
	return data, r.elapsed
}

func (r *activeRecording) elapsedSeconds() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.elapsed
}
