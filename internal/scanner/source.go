package scanner

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// Source is a decoder that yields single decoded strings, such as a
// keyboard-wedge scanner or a camera barcode detector.
type Source interface {
	// Run emits decoded values until ctx is done or the device fails.
	Run(ctx context.Context, emit func(string)) error
	// Close releases the device. It may be called while Run is still
	// unwinding and must unblock any pending read.
	Close() error
}

// LineSource reads newline-terminated codes, as sent by keyboard-wedge
// scanners or typed on a terminal.
type LineSource struct {
	r io.Reader
}

func NewLineSource(r io.Reader) *LineSource {
	return &LineSource{r: r}
}

func (s *LineSource) Run(ctx context.Context, emit func(string)) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		sc := bufio.NewScanner(s.r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case line := <-lines:
			if line = strings.TrimSpace(line); line != "" {
				emit(line)
			}
		}
	}
}

// Close closes the underlying reader when it supports it, which unblocks a
// pending read.
func (s *LineSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Detector inspects one frame or buffer and reports a decoded value if found.
type Detector interface {
	Detect(ctx context.Context) (string, bool, error)
}

// ErrStopPolling can be returned by a Detector to end the session cleanly.
var ErrStopPolling = errors.New("stop polling")

// PollingSource calls a Detector on a fixed interval.
type PollingSource struct {
	detector Detector
	interval time.Duration
}

func NewPollingSource(d Detector, interval time.Duration) *PollingSource {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &PollingSource{detector: d, interval: interval}
}

func (s *PollingSource) Run(ctx context.Context, emit func(string)) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		code, ok, err := s.detector.Detect(ctx)
		switch {
		case errors.Is(err, ErrStopPolling):
			return nil
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			return err
		case ok && strings.TrimSpace(code) != "":
			emit(strings.TrimSpace(code))
		}
	}
}

func (s *PollingSource) Close() error {
	if c, ok := s.detector.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
