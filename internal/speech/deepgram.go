package speech

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/pkg/api/speak/v1/websocket/interfaces"
	clientinterfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces/v1"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/speak"
)

// DeepgramSynthesizer streams linear16 PCM from the Deepgram speak websocket.
// The engine delivers no mid-utterance timeline; the speaker layer estimates
// progress on its own.
type DeepgramSynthesizer struct {
	apiKey     string
	model      string
	sampleRate int
}

// NewDeepgramSynthesizer selects a language-appropriate default voice when no
// model is given.
func NewDeepgramSynthesizer(apiKey, model, language string) *DeepgramSynthesizer {
	if model == "" {
		model = "aura-2-thalia-en"
		if language == "es" {
			model = "aura-2-celeste-es"
		}
	}
	return &DeepgramSynthesizer{apiKey: apiKey, model: model, sampleRate: 48000}
}

// Stream synthesizes text, returning audio and error channels that close when
// synthesis finishes, idles out, or the context is cancelled.
func (d *DeepgramSynthesizer) Stream(ctx context.Context, text string) (<-chan []byte, <-chan error) {
	pcmCh := make(chan []byte, 4096)
	errCh := make(chan error, 1)

	go func() {
		defer close(pcmCh)
		defer close(errCh)

		if d.apiKey == "" {
			errCh <- fmt.Errorf("deepgram: api key missing")
			return
		}
		if text == "" {
			return
		}

		options := &clientinterfaces.WSSpeakOptions{
			Model:      d.model,
			Encoding:   "linear16",
			SampleRate: d.sampleRate,
		}

		var lastRecvUnix int64
		var seenAudio int32
		cb := &speakCallback{onBinary: func(data []byte) error {
			if len(data) == 0 {
				return nil
			}
			atomic.StoreInt64(&lastRecvUnix, time.Now().UnixNano())
			atomic.StoreInt32(&seenAudio, 1)
			chunk := make([]byte, len(data))
			copy(chunk, data)
			select {
			case pcmCh <- chunk:
			default:
			}
			return nil
		}}

		client, err := speak.NewWSUsingCallback(ctx, d.apiKey, &clientinterfaces.ClientOptions{}, options, cb)
		if err != nil {
			errCh <- fmt.Errorf("deepgram: create client: %w", err)
			return
		}
		defer client.Stop()

		if ok := client.Connect(); !ok {
			errCh <- fmt.Errorf("deepgram: connect failed")
			return
		}
		if err := client.SpeakWithText(text); err != nil {
			errCh <- fmt.Errorf("deepgram: speak: %w", err)
			return
		}
		if err := client.Flush(); err != nil {
			log.Printf("deepgram: flush error: %v", err)
		}

		// No completion event is guaranteed: treat a quiet receive window
		// after the first audio as end-of-utterance, with an overall deadline.
		const idleWindow = 400 * time.Millisecond
		deadline := time.Now().Add(15 * time.Second)
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if atomic.LoadInt32(&seenAudio) == 1 {
					last := time.Unix(0, atomic.LoadInt64(&lastRecvUnix))
					if time.Since(last) > idleWindow {
						return
					}
				}
				if time.Now().After(deadline) {
					return
				}
			}
		}
	}()

	return pcmCh, errCh
}

type speakCallback struct{ onBinary func([]byte) error }

func (s *speakCallback) Open(*msginterfaces.OpenResponse) error         { return nil }
func (s *speakCallback) Metadata(*msginterfaces.MetadataResponse) error { return nil }
func (s *speakCallback) Flush(*msginterfaces.FlushedResponse) error     { return nil }
func (s *speakCallback) Clear(*msginterfaces.ClearedResponse) error     { return nil }
func (s *speakCallback) Close(*msginterfaces.CloseResponse) error       { return nil }
func (s *speakCallback) Warning(*msginterfaces.WarningResponse) error   { return nil }
func (s *speakCallback) Error(*msginterfaces.ErrorResponse) error       { return nil }
func (s *speakCallback) UnhandledEvent([]byte) error                    { return nil }
func (s *speakCallback) Binary(data []byte) error {
	if s.onBinary != nil {
		return s.onBinary(data)
	}
	return nil
}
