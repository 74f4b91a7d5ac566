package app

import (
	"fmt"
	"os"

	"github.com/korralabs/recbooth/internal/session"
)

// tempPlayable is a take staged as a temp file so the front end can stream
// it back for review. The controller closes it when the cursor moves away or
// the take is replaced.
type tempPlayable struct {
	path string
}

// newTempPlayable writes payload to a temp WAV file and returns a playback
// resource pointing at it.
func newTempPlayable(payload []byte) (session.Playable, error) {
	f, err := os.CreateTemp("", "recbooth-take-*.wav")
	if err != nil {
		return nil, fmt.Errorf("app: stage take: %w", err)
	}
	if _, err := f.Write(payload); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("app: stage take: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("app: stage take: %w", err)
	}
	return &tempPlayable{path: f.Name()}, nil
}

func (p *tempPlayable) URI() string {
	return "file://" + p.path
}

func (p *tempPlayable) Close() error {
	return os.Remove(p.path)
}
