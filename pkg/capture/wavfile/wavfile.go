// Package wavfile provides a scripted capture device that plays back WAV
// files from a directory instead of recording from a microphone. It
// implements the capture.Device interface.
//
// Each Start consumes the next file in lexical order, wrapping around when
// the directory is exhausted. The negotiated settings reported on Stop are
// parsed from the WAV header, so they reflect what the "device" actually
// delivered rather than what was requested — exactly the behaviour a real
// microphone adapter exhibits.
//
// The device streams the file contents in fixed-size chunks through
// [capture.Handle.Frames], which makes it usable as a stand-in for a live
// microphone in front of the transcription stream.
package wavfile

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/korralabs/recbooth/pkg/capture"
)

// Compile-time interface assertion.
var _ capture.Device = (*Device)(nil)

// chunkSize is the size of each chunk emitted on the frames channel.
const chunkSize = 4096

// framesChanBuf is the buffer depth of the frames channel.
const framesChanBuf = 64

// Device is a scripted capture device backed by a directory of WAV files.
// Safe for concurrent use, though captures are expected to run one at a time.
type Device struct {
	mu    sync.Mutex
	files []string
	next  int
}

// New creates a Device from all *.wav files directly inside dir, in lexical
// order. Returns an error when the directory cannot be read or contains no
// WAV files.
func New(dir string) (*Device, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.wav"))
	if err != nil {
		return nil, fmt.Errorf("wavfile: scan %q: %w", dir, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("wavfile: no .wav files in %q", dir)
	}
	sort.Strings(matches)
	return &Device{files: matches}, nil
}

// Start implements [capture.Device]. It validates the requested constraints
// the way a sound card would: only 8- and 16-bit capture is supported, and
// at most two channels.
func (d *Device) Start(_ context.Context, c capture.Constraints) (capture.Handle, error) {
	if c.SampleSize != 0 && c.SampleSize != 8 && c.SampleSize != 16 {
		return nil, &capture.ConstraintError{Constraint: "sample_size", Requested: c.SampleSize}
	}
	if c.Channels > 2 {
		return nil, &capture.ConstraintError{Constraint: "channels", Requested: c.Channels}
	}

	d.mu.Lock()
	path := d.files[d.next%len(d.files)]
	d.next++
	d.mu.Unlock()

	payload, err := os.ReadFile(path)
	if err != nil {
		// The directory was valid at New time; a vanished file means the
		// device is gone.
		return nil, fmt.Errorf("wavfile: read %q: %w", path, capture.ErrPermissionDenied)
	}

	h := &handle{
		payload: payload,
		frames:  make(chan []byte, framesChanBuf),
		done:    make(chan struct{}),
	}
	h.wg.Add(1)
	go h.stream()
	return h, nil
}

// handle is one in-progress scripted take.
type handle struct {
	payload []byte
	frames  chan []byte
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// stream pushes the file contents through the frames channel in chunks.
// It exits when the take is stopped, even if nothing is reading.
func (h *handle) stream() {
	defer h.wg.Done()
	defer close(h.frames)
	for off := 0; off < len(h.payload); off += chunkSize {
		end := min(off+chunkSize, len(h.payload))
		select {
		case h.frames <- h.payload[off:end]:
		case <-h.done:
			return
		}
	}
}

// Frames implements [capture.Handle].
func (h *handle) Frames() <-chan []byte { return h.frames }

// Stop implements [capture.Handle]. The reported settings come from the WAV
// header of the consumed file.
func (h *handle) Stop(context.Context) (capture.Take, error) {
	h.once.Do(func() { close(h.done) })
	h.wg.Wait()

	settings, err := parseHeader(h.payload)
	if err != nil {
		return capture.Take{}, fmt.Errorf("wavfile: %w", err)
	}
	return capture.Take{Payload: h.payload, Settings: settings}, nil
}

// parseHeader extracts the negotiated settings from a RIFF/WAVE header.
// Only the fmt chunk is inspected; the payload is passed through untouched.
func parseHeader(wav []byte) (capture.Settings, error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return capture.Settings{}, fmt.Errorf("not a RIFF/WAVE file")
	}

	// Walk the chunk list looking for "fmt ".
	off := 12
	for off+8 <= len(wav) {
		id := string(wav[off : off+4])
		size := int(binary.LittleEndian.Uint32(wav[off+4 : off+8]))
		body := off + 8
		if id == "fmt " {
			if body+16 > len(wav) {
				return capture.Settings{}, fmt.Errorf("truncated fmt chunk")
			}
			return capture.Settings{
				Channels:   int(binary.LittleEndian.Uint16(wav[body+2 : body+4])),
				SampleRate: int(binary.LittleEndian.Uint32(wav[body+4 : body+8])),
				SampleSize: int(binary.LittleEndian.Uint16(wav[body+14 : body+16])),
			}, nil
		}
		// Chunks are word-aligned.
		off = body + size + size%2
	}
	return capture.Settings{}, fmt.Errorf("no fmt chunk found")
}
