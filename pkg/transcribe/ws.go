package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/coder/websocket"
)

// resultChanBuf is the buffer depth of the results channel.
const resultChanBuf = 64

// audioChanBuf is the buffer depth of the outgoing audio channel.
const audioChanBuf = 256

// Compile-time interface assertion.
var _ Service = (*Client)(nil)

// Option is a functional option for configuring a [Client].
type Option func(*Client)

// WithLanguage sets the default language used when [StreamConfig.Language]
// is empty.
func WithLanguage(language string) Option {
	return func(c *Client) {
		c.language = language
	}
}

// Client is a [Service] backed by a websocket transcription endpoint.
//
// The wire protocol: audio is sent as binary messages; the service answers
// with JSON text messages of the form
//
//	{"text": "...", "is_final": bool, "confidence": 0.93}
//
// and the client announces end-of-audio with {"type": "EOS"} on Close.
type Client struct {
	endpoint string
	language string
}

// New creates a Client for the websocket endpoint at wsURL (ws:// or wss://).
func New(wsURL string, opts ...Option) (*Client, error) {
	if wsURL == "" {
		return nil, errors.New("transcribe: endpoint must not be empty")
	}
	c := &Client{endpoint: wsURL}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Open implements [Service]. It dials the endpoint with the stream format in
// the query string and spawns the read and write loops.
func (c *Client) Open(ctx context.Context, cfg StreamConfig) (Stream, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("transcribe: parse endpoint: %w", err)
	}

	lang := cfg.Language
	if lang == "" {
		lang = c.language
	}

	q := u.Query()
	if cfg.SampleRate > 0 {
		q.Set("sample_rate", strconv.Itoa(cfg.SampleRate))
	}
	if cfg.Channels > 0 {
		q.Set("channels", strconv.Itoa(cfg.Channels))
	}
	if lang != "" {
		q.Set("language", lang)
	}
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("transcribe: dial: %w", err)
	}

	s := &stream{
		conn:    conn,
		results: make(chan Result, resultChanBuf),
		audio:   make(chan []byte, audioChanBuf),
		done:    make(chan struct{}),
		dead:    make(chan struct{}),
	}
	s.wg.Add(2)
	go s.readLoop(ctx)
	go s.writeLoop(ctx)
	return s, nil
}

// stream is a live websocket transcription session. It implements [Stream].
type stream struct {
	conn    *websocket.Conn
	results chan Result
	audio   chan []byte

	done chan struct{}

	// dead is closed when the write loop exits, whether from Close or from a
	// connection failure. Once closed, Send fails instead of queueing chunks
	// nothing will ever drain.
	dead chan struct{}

	once sync.Once
	wg   sync.WaitGroup
}

// wireResult is the JSON structure the service sends for each update.
type wireResult struct {
	Text       string  `json:"text"`
	IsFinal    bool    `json:"is_final"`
	Confidence float64 `json:"confidence"`
}

// Send implements [Stream]. It fails once the stream is closed or the
// connection has died, it never blocks indefinitely.
func (s *stream) Send(chunk []byte) error {
	select {
	case <-s.done:
		return errors.New("transcribe: stream is closed")
	case <-s.dead:
		return errors.New("transcribe: stream connection lost")
	default:
	}
	select {
	case s.audio <- chunk:
		return nil
	case <-s.done:
		return errors.New("transcribe: stream is closed")
	case <-s.dead:
		return errors.New("transcribe: stream connection lost")
	}
}

// Results implements [Stream].
func (s *stream) Results() <-chan Result { return s.results }

// Close implements [Stream]. It announces end-of-audio so the service can
// flush a final result, waits for both loops, then closes the connection.
func (s *stream) Close() error {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Write(context.Background(), websocket.MessageText, []byte(`{"type":"EOS"}`))
		s.wg.Wait()
		s.conn.Close(websocket.StatusNormalClosure, "stream closed")
	})
	return nil
}

// writeLoop forwards queued audio chunks as binary messages.
func (s *stream) writeLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.dead)
	for {
		select {
		case chunk, ok := <-s.audio:
			if !ok {
				return
			}
			if err := s.conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
				return
			}
		case <-s.done:
			// Drain remaining audio before exiting so the final result
			// covers the whole take.
			for {
				select {
				case chunk, ok := <-s.audio:
					if !ok {
						return
					}
					_ = s.conn.Write(ctx, websocket.MessageBinary, chunk)
				default:
					return
				}
			}
		}
	}
}

// readLoop receives JSON updates and dispatches them to the results channel.
func (s *stream) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.results)

	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			// Normal close or context cancellation.
			return
		}

		var wr wireResult
		if err := json.Unmarshal(msg, &wr); err != nil || wr.Text == "" {
			continue
		}

		r := Result{Text: wr.Text, Final: wr.IsFinal, Confidence: wr.Confidence}
		select {
		case s.results <- r:
		case <-s.done:
			// Still deliver finals produced during shutdown if there is room.
			select {
			case s.results <- r:
			default:
			}
		}
	}
}
