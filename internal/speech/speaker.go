package speech

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
)

const (
	// wordsPerMinute is the fixed speaking rate used to estimate utterance
	// duration; the synthesis engine exposes no timeline of its own.
	wordsPerMinute = 150
	// progressTick is how often the estimated position is refreshed while
	// playing.
	progressTick = 250 * time.Millisecond
	// seekStep is the fixed seek increment.
	seekStep = 10 * time.Second
	// minDuration floors the estimate so even one-word replies register.
	minDuration = time.Second
)

// State of the playback controller. Stopped is terminal and reachable from
// every other state; reaching it clears every timer the utterance owned.
type State string

const (
	StateStopped State = "stopped"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

// Synthesizer streams synthesized audio for the given text. The stream closes
// when synthesis completes or the context is cancelled; no progress events
// are assumed available.
type Synthesizer interface {
	Stream(ctx context.Context, text string) (<-chan []byte, <-chan error)
}

// AudioSink consumes synthesized audio and performs delivery. Implementations
// buffer internally; Reset drops anything queued immediately.
type AudioSink interface {
	WritePCM(pcm []byte)
	FlushTail()
	Reset()
}

// Snapshot is the derived playback state. Position and percent are estimates
// computed from wall-clock time against the word-count duration estimate, not
// ground truth from the engine.
type Snapshot struct {
	State        State
	CurrentTime  time.Duration
	Duration     time.Duration
	Percent      float64
	MessageIndex int
}

// Events are playback callbacks. OnUpdate fires on every progress tick and on
// state transitions.
type Events struct {
	OnUpdate func(Snapshot)
}

// Speaker drives speech synthesis for assistant replies with best-effort
// play/pause/resume/stop/seek. Seeking is approximate by necessity: seeks
// adjust the estimated clock, seek-forward past the estimated end stops, and
// seek-backward to zero restarts synthesis from the beginning.
type Speaker struct {
	synth  Synthesizer
	sink   AudioSink
	events Events

	mu           sync.Mutex
	state        State
	text         string
	messageIndex int
	duration     time.Duration
	startedAt    time.Time
	pausedAt     time.Time
	pausedTotal  time.Duration
	skew         time.Duration
	cancel       context.CancelFunc
	done         chan struct{}
	gen          int
}

// New creates a stopped speaker.
func New(synth Synthesizer, sink AudioSink, events Events) *Speaker {
	if sink == nil {
		sink = nopSink{}
	}
	return &Speaker{synth: synth, sink: sink, events: events, state: StateStopped}
}

// estimateDuration derives the spoken length of text at the fixed rate.
func estimateDuration(text string) time.Duration {
	words := len(strings.Fields(text))
	d := time.Duration(words) * time.Minute / wordsPerMinute
	if d < minDuration {
		d = minDuration
	}
	return d
}

// Play synthesizes and "plays" text, replacing any in-flight utterance. The
// messageIndex is echoed back in snapshots so callers can highlight the
// message being read.
func (p *Speaker) Play(text string, messageIndex int) {
	p.Stop()

	clean := Sanitize(text)
	if clean == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.state = StatePlaying
	p.text = clean
	p.messageIndex = messageIndex
	p.duration = estimateDuration(clean)
	p.startedAt = time.Now()
	p.pausedTotal = 0
	p.skew = 0
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go p.forward(ctx, gen)
	go p.tick(gen, done)
	p.emit()
}

// forward copies synthesized audio to the sink, holding chunks back while
// paused and discarding them once stopped.
func (p *Speaker) forward(ctx context.Context, gen int) {
	pcmCh, errCh := p.synth.Stream(ctx, p.currentText(gen))
	for pcmCh != nil || errCh != nil {
		select {
		case chunk, ok := <-pcmCh:
			if !ok {
				pcmCh = nil
				continue
			}
			if !p.waitWhilePaused(gen) {
				return
			}
			p.sink.WritePCM(chunk)
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				log.Printf("speech: synthesis error: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// waitWhilePaused blocks chunk delivery during pause. It returns false when
// the utterance was stopped or replaced.
func (p *Speaker) waitWhilePaused(gen int) bool {
	for {
		p.mu.Lock()
		state, cur := p.state, p.gen
		p.mu.Unlock()
		if cur != gen || state == StateStopped {
			return false
		}
		if state == StatePlaying {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// tick refreshes the progress estimate and ends playback when the estimated
// duration elapses.
func (p *Speaker) tick(gen int, done <-chan struct{}) {
	ticker := time.NewTicker(progressTick)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			p.mu.Lock()
			if p.gen != gen || p.state == StateStopped {
				p.mu.Unlock()
				return
			}
			if p.state == StatePlaying && p.elapsedLocked() >= p.duration {
				p.mu.Unlock()
				p.finish(gen)
				return
			}
			playing := p.state == StatePlaying
			p.mu.Unlock()
			if playing {
				p.emit()
			}
		}
	}
}

// elapsedLocked computes the estimated position. Caller holds p.mu.
func (p *Speaker) elapsedLocked() time.Duration {
	if p.state == StateStopped {
		return 0
	}
	ref := time.Now()
	if p.state == StatePaused {
		ref = p.pausedAt
	}
	e := ref.Sub(p.startedAt) - p.pausedTotal + p.skew
	if e < 0 {
		e = 0
	}
	if e > p.duration {
		e = p.duration
	}
	return e
}

// Pause freezes the progress estimate and holds back further audio.
func (p *Speaker) Pause() {
	p.mu.Lock()
	if p.state != StatePlaying {
		p.mu.Unlock()
		return
	}
	p.state = StatePaused
	p.pausedAt = time.Now()
	p.mu.Unlock()
	p.emit()
}

// Resume continues playback, crediting the paused interval so elapsed-time
// accounting stays correct.
func (p *Speaker) Resume() {
	p.mu.Lock()
	if p.state != StatePaused {
		p.mu.Unlock()
		return
	}
	p.pausedTotal += time.Since(p.pausedAt)
	p.state = StatePlaying
	p.mu.Unlock()
	p.emit()
}

// Stop cancels synthesis, drops queued audio and resets to the terminal
// stopped state. Safe from every state.
func (p *Speaker) Stop() {
	p.mu.Lock()
	if p.state == StateStopped {
		p.mu.Unlock()
		return
	}
	cancel, done := p.cancel, p.done
	p.resetLocked()
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		close(done)
	}
	p.sink.Reset()
	p.emit()
}

// finish is the natural-end path: audio ran to the estimated duration.
func (p *Speaker) finish(gen int) {
	p.mu.Lock()
	if p.gen != gen || p.state == StateStopped {
		p.mu.Unlock()
		return
	}
	cancel, done := p.cancel, p.done
	p.resetLocked()
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		close(done)
	}
	p.sink.FlushTail()
	p.emit()
}

// resetLocked clears utterance state. Caller holds p.mu. The text is kept so
// Replay can restart the last utterance.
func (p *Speaker) resetLocked() {
	p.state = StateStopped
	p.duration = 0
	p.pausedTotal = 0
	p.skew = 0
	p.cancel = nil
	p.done = nil
}

// SeekForward jumps the estimate ahead by the seek step; past the estimated
// end it stops playback.
func (p *Speaker) SeekForward() {
	p.mu.Lock()
	if p.state == StateStopped {
		p.mu.Unlock()
		return
	}
	p.skew += seekStep
	past := p.elapsedLocked() >= p.duration
	p.mu.Unlock()
	if past {
		p.Stop()
		return
	}
	p.emit()
}

// SeekBackward jumps the estimate back by the seek step; at or below zero it
// restarts the utterance from the beginning. True partial resume inside an
// utterance is not achievable, so a backward seek from an early position is a
// restart by design.
func (p *Speaker) SeekBackward() {
	p.mu.Lock()
	if p.state == StateStopped {
		p.mu.Unlock()
		return
	}
	if p.elapsedLocked() <= seekStep {
		text, idx := p.text, p.messageIndex
		p.mu.Unlock()
		p.Play(text, idx)
		return
	}
	p.skew -= seekStep
	p.mu.Unlock()
	p.emit()
}

// Replay restarts the most recent utterance from the beginning.
func (p *Speaker) Replay() {
	p.mu.Lock()
	text, idx := p.text, p.messageIndex
	p.mu.Unlock()
	if text == "" {
		return
	}
	p.Play(text, idx)
}

// Progress returns the current derived playback state.
func (p *Speaker) Progress() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Speaker) snapshotLocked() Snapshot {
	s := Snapshot{
		State:        p.state,
		Duration:     p.duration,
		MessageIndex: p.messageIndex,
	}
	s.CurrentTime = p.elapsedLocked()
	if p.duration > 0 {
		s.Percent = float64(s.CurrentTime) / float64(p.duration) * 100
	}
	if s.Percent < 0 {
		s.Percent = 0
	}
	if s.Percent > 100 {
		s.Percent = 100
	}
	return s
}

func (p *Speaker) currentText(gen int) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen {
		return ""
	}
	return p.text
}

func (p *Speaker) emit() {
	if p.events.OnUpdate == nil {
		return
	}
	p.mu.Lock()
	s := p.snapshotLocked()
	p.mu.Unlock()
	p.events.OnUpdate(s)
}

type nopSink struct{}

func (nopSink) WritePCM([]byte) {}
func (nopSink) FlushTail()      {}
func (nopSink) Reset()          {}
