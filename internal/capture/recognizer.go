package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultStreamURL is the realtime transcription endpoint.
const DefaultStreamURL = "wss://streaming.assemblyai.com/v3/ws"

// StreamRecognizer is a Recognizer backed by a streaming transcription
// websocket. Each Start dials a fresh connection; audio is queued through a
// buffered channel and dropped rather than blocking when the writer falls
// behind.
type StreamRecognizer struct {
	apiKey   string
	language string
	endpoint string

	mu      sync.Mutex
	conn    *websocket.Conn
	audio   chan []byte
	stopCh  chan struct{}
	started bool
}

// NewStreamRecognizer creates a recognizer for the given two-letter language
// tag. An empty endpoint selects the default.
func NewStreamRecognizer(apiKey, language, endpoint string) *StreamRecognizer {
	if endpoint == "" {
		endpoint = DefaultStreamURL
	}
	if language == "" {
		language = "en"
	}
	return &StreamRecognizer{apiKey: apiKey, language: language, endpoint: endpoint}
}

// turnMessage is the engine's transcript event. EndOfTurn marks a final
// fragment; anything else is interim.
type turnMessage struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
	EndOfTurn  bool   `json:"end_of_turn"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Start dials the engine and returns this stream's result and error-code
// channels. Both close when the stream terminates for any reason.
func (s *StreamRecognizer) Start(ctx context.Context) (<-chan Result, <-chan string, error) {
	if s.apiKey == "" {
		return nil, nil, fmt.Errorf("recognizer: api key is empty")
	}

	params := url.Values{}
	params.Set("sample_rate", "16000")
	params.Set("encoding", "pcm_s16le")
	params.Set("language", s.language)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	headers := map[string][]string{"Authorization": {s.apiKey}}
	conn, resp, err := dialer.DialContext(ctx, s.endpoint+"?"+params.Encode(), headers)
	if err != nil {
		if resp != nil {
			log.Printf("recognizer: dial failed with status %d", resp.StatusCode)
		}
		return nil, nil, fmt.Errorf("recognizer: dial: %w", err)
	}

	results := make(chan Result, 100)
	errs := make(chan string, 10)
	stopCh := make(chan struct{})

	s.mu.Lock()
	s.conn = conn
	s.audio = make(chan []byte, 1000)
	s.stopCh = stopCh
	s.started = true
	s.mu.Unlock()

	go s.readLoop(conn, results, errs, stopCh)
	go s.writeLoop(conn, s.audio, stopCh)
	return results, errs, nil
}

// Feed queues microphone PCM for the engine. Packets are dropped when the
// queue is full; realtime audio must never block the caller.
func (s *StreamRecognizer) Feed(pcm []byte) error {
	s.mu.Lock()
	audio, started := s.audio, s.started
	s.mu.Unlock()
	if !started {
		return fmt.Errorf("recognizer: not connected")
	}
	select {
	case audio <- pcm:
	default:
		log.Printf("recognizer: audio queue full, dropping packet")
	}
	return nil
}

// Stop terminates the current stream. Safe to call when idle.
func (s *StreamRecognizer) Stop() error {
	s.mu.Lock()
	conn, stopCh, started := s.conn, s.stopCh, s.started
	s.conn = nil
	s.audio = nil
	s.stopCh = nil
	s.started = false
	s.mu.Unlock()
	if !started {
		return nil
	}
	close(stopCh)
	if conn != nil {
		_ = conn.WriteJSON(map[string]string{"type": "Terminate"})
		_ = conn.Close()
	}
	return nil
}

func (s *StreamRecognizer) readLoop(conn *websocket.Conn, results chan<- Result, errs chan<- string, stopCh <-chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("recognizer: recovered in readLoop: %v", r)
		}
	}()
	defer close(results)
	defer close(errs)
	for {
		select {
		case <-stopCh:
			return
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-stopCh:
				// deliberate stop, not an engine failure
			default:
				log.Printf("recognizer: read error: %v", err)
			}
			return
		}
		s.dispatch(message, results, errs)
	}
}

func (s *StreamRecognizer) dispatch(message []byte, results chan<- Result, errs chan<- string) {
	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &base); err != nil {
		log.Printf("recognizer: bad message: %v", err)
		return
	}
	switch base.Type {
	case "Begin":
		log.Printf("recognizer: stream began")
	case "Turn":
		var msg turnMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("recognizer: bad turn message: %v", err)
			return
		}
		if msg.Transcript == "" {
			return
		}
		select {
		case results <- Result{Text: msg.Transcript, IsFinal: msg.EndOfTurn}:
		default:
			log.Printf("recognizer: result queue full, dropping fragment")
		}
	case "Termination":
		log.Printf("recognizer: stream terminated by engine")
	case "Error":
		var msg errorMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return
		}
		select {
		case errs <- classifyEngineCode(msg.Error):
		default:
		}
	default:
		log.Printf("recognizer: unknown message type %q", base.Type)
	}
}

// classifyEngineCode folds the engine's free-text error strings onto the
// fixed code vocabulary the capture layer understands.
func classifyEngineCode(errText string) string {
	t := strings.ToLower(errText)
	switch {
	case strings.Contains(t, "no speech") || strings.Contains(t, "no-speech") || strings.Contains(t, "audio timeout"):
		return "no-speech"
	case strings.Contains(t, "not allowed") || strings.Contains(t, "unauthorized") || strings.Contains(t, "forbidden"):
		return "not-allowed"
	case strings.Contains(t, "network") || strings.Contains(t, "connection"):
		return "network"
	}
	return errText
}

func (s *StreamRecognizer) writeLoop(conn *websocket.Conn, audio <-chan []byte, stopCh <-chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("recognizer: recovered in writeLoop: %v", r)
		}
	}()
	for {
		select {
		case <-stopCh:
			return
		case pcm, ok := <-audio:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, pcm); err != nil {
				log.Printf("recognizer: write error: %v", err)
				return
			}
		}
	}
}
