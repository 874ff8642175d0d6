package httpserver

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/rcontcode/expense-evolution-ai-sub009/internal/assistant"
	"github.com/rcontcode/expense-evolution-ai-sub009/internal/capture"
	"github.com/rcontcode/expense-evolution-ai-sub009/internal/engine"
	"github.com/rcontcode/expense-evolution-ai-sub009/internal/memory"
	"github.com/rcontcode/expense-evolution-ai-sub009/internal/speech"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  65536,
	WriteBufferSize: 65536,
	CheckOrigin: func(r *http.Request) bool {
		// Browser clients connect cross-origin in demos; restrict in production.
		return true
	},
}

// clientMessage is the inbound control frame. Binary frames carry mic PCM.
type clientMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Op   string `json:"op,omitempty"`
}

// serverMessage is the outbound control frame. Binary frames carry audio.
type serverMessage struct {
	Type         string  `json:"type"`
	Text         string  `json:"text,omitempty"`
	Final        bool    `json:"final,omitempty"`
	Kind         string  `json:"kind,omitempty"`
	Active       bool    `json:"active,omitempty"`
	State        string  `json:"state,omitempty"`
	CurrentTime  float64 `json:"currentTime,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	Percent      float64 `json:"percent,omitempty"`
	MessageIndex int     `json:"messageIndex,omitempty"`
}

// wsWriter serializes all writes to one connection; gorilla permits a single
// concurrent writer.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) sendJSON(m serverMessage) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.WriteJSON(m); err != nil {
		log.Printf("ws: write error: %v", err)
	}
}

func (w *wsWriter) sendBinary(b []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		log.Printf("ws: binary write error: %v", err)
	}
}

// wsSink delivers synthesized audio to the browser. Reset tells the client to
// flush anything it has buffered but not yet played.
type wsSink struct{ w *wsWriter }

func (s *wsSink) WritePCM(pcm []byte) { s.w.sendBinary(pcm) }
func (s *wsSink) FlushTail()          { s.w.sendJSON(serverMessage{Type: "audio_end"}) }
func (s *wsSink) Reset()              { s.w.sendJSON(serverMessage{Type: "audio_reset"}) }

// serveWS runs one full pipeline per connection: capture, speaker, session
// and the exclusivity guard all live and die with the socket.
func (h *handler) serveWS(c echo.Context) error {
	conn, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("ws: upgrade error: %v", err)
		return nil
	}
	defer func() { _ = conn.Close() }()

	w := &wsWriter{conn: conn}
	guard := engine.New()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	mem := memory.New(0)
	mem.StartSweeper(ctx)

	speaker := speech.New(
		speech.NewDeepgramSynthesizer(h.cfg.DeepgramKey, h.cfg.DeepgramTTSModel, h.cfg.Language),
		&wsSink{w: w},
		speech.Events{OnUpdate: func(s speech.Snapshot) {
			w.sendJSON(serverMessage{
				Type:         "progress",
				State:        string(s.State),
				CurrentTime:  s.CurrentTime.Seconds(),
				Duration:     s.Duration.Seconds(),
				Percent:      s.Percent,
				MessageIndex: s.MessageIndex,
			})
		}},
	)
	defer speaker.Stop()

	sess := assistant.New(assistant.Config{
		Lang:     h.cfg.Language,
		Executor: h.exec,
		LLM:      h.chat,
		Memory:   mem,
		Speaker:  speaker,
		Guard:    guard,
	})

	rec := capture.NewStreamRecognizer(h.cfg.AssemblyAIKey, h.cfg.Language, "")
	capt := capture.New(rec, capture.Events{
		OnResult: func(text string, isFinal bool) {
			w.sendJSON(serverMessage{Type: "transcript", Text: text, Final: isFinal})
			if isFinal {
				if reply := sess.HandleUtterance(ctx, text); reply != "" {
					w.sendJSON(serverMessage{Type: "reply", Text: reply})
				}
			}
		},
		OnError: func(kind capture.ErrorKind) {
			w.sendJSON(serverMessage{Type: "error", Kind: string(kind)})
		},
		OnStop: func(string) {
			w.sendJSON(serverMessage{Type: "listening", Active: false})
		},
	}, 0)
	sess.AttachCapture(capt)
	defer sess.StopListening()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return nil
		}
		switch mt {
		case websocket.BinaryMessage:
			_ = capt.Feed(data)
		case websocket.TextMessage:
			var m clientMessage
			if err := json.Unmarshal(data, &m); err != nil {
				continue
			}
			h.dispatch(ctx, w, sess, speaker, &m)
		}
	}
}

func (h *handler) dispatch(ctx context.Context, w *wsWriter, sess *assistant.Session, speaker *speech.Speaker, m *clientMessage) {
	switch m.Type {
	case "utterance":
		if m.Text == "" {
			return
		}
		if reply := sess.HandleUtterance(ctx, m.Text); reply != "" {
			w.sendJSON(serverMessage{Type: "reply", Text: reply})
		}
	case "start_listening":
		if err := sess.StartListening(); err != nil {
			log.Printf("ws: start listening: %v", err)
			w.sendJSON(serverMessage{Type: "error", Kind: "network"})
			return
		}
		w.sendJSON(serverMessage{Type: "listening", Active: true})
	case "stop_listening":
		sess.StopListening()
	case "playback":
		switch m.Op {
		case "pause":
			speaker.Pause()
		case "resume":
			speaker.Resume()
		case "stop":
			speaker.Stop()
		case "seek_forward":
			speaker.SeekForward()
		case "seek_backward":
			speaker.SeekBackward()
		case "replay":
			speaker.Replay()
		}
	default:
		log.Printf("ws: unknown message type %q", m.Type)
	}
}
