package logging

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGelfHandler returns a JSON slog handler that ships records to a Graylog
// GELF UDP input. The returned closer releases the UDP socket.
func NewGelfHandler(address, level string) (slog.Handler, io.Closer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, nil, fmt.Errorf("creating gelf writer for %s: %w", address, err)
	}
	w.Facility = "fc2observ"
	return slog.NewJSONHandler(w, handlerOptions(level)), w, nil
}
