// Package stdout writes events as newline-delimited JSON, one {type, data}
// object per line, for a parent process reading our standard output.
package stdout

import (
	"io"
	"sync"

	"github.com/FC2Observ/observ/pkg/streaming"
)

type Sink struct {
	mu sync.Mutex
	w  io.Writer
}

func New(w io.Writer) *Sink {
	return &Sink{w: w}
}

func (s *Sink) Name() string { return "stdout" }

func (s *Sink) Init() error { return nil }

func (s *Sink) Close() error { return nil }

func (s *Sink) Send(e streaming.Event) error {
	data, err := e.Marshal()
	if err != nil {
		return err
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(data)
	return err
}
