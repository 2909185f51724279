package usecase

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// pumpAudioChunks copies capture output into sink until EOF and reports the
// read error, if any, on done.
func pumpAudioChunks(audio io.Reader, sink io.Writer, chunkSize int, done chan<- error) {
	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			if _, writeErr := sink.Write(buf[:n]); writeErr != nil {
				done <- fmt.Errorf("failed to buffer audio: %w", writeErr)
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				done <- nil
			} else {
				done <- fmt.Errorf("audio capture error: %w", err)
			}
			return
		}
	}
}

// runElapsedTicker reports the elapsed counter every interval until stop closes.
func runElapsedTicker(interval time.Duration, tick func() int, report func(int), stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			report(tick())
		}
	}
}

// waitForFinalize waits for the pump to drain. On timeout the capture is
// cancelled, which closes its output and lets the pump finish.
func waitForFinalize(done <-chan error, timeout time.Duration, cancel func()) error {
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		cancel()
		err := <-done
		if err == nil {
			err = errors.New("audio capture did not finalize in time")
		}
		return err
	}
}
