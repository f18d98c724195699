// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"sync"
	"time"

	"spectrum/internal/analysis"
	applog "spectrum/internal/log"
)

// Frame is the JSON payload sent to visualization clients. Bin arrays are
// aligned by index; BinHz is the bandwidth of one bin.
type Frame struct {
	Type       string               `json:"type"`
	Generation uint64               `json:"generation"`
	Timestamp  int64                `json:"timestamp"` // nanoseconds since epoch
	BinHz      float64              `json:"bin_hz"`
	Smoothed   []float64            `json:"smoothed_db"`
	PeakHold   []float64            `json:"peak_hold_db,omitempty"`
	Peaks      []analysis.Peak      `json:"peaks"`
	Bands      []analysis.BandLevel `json:"bands,omitempty"`
}

// Publisher is the consumer role: it polls the analyzer's snapshot surface
// at a fixed cadence and forwards fresh results to a Transport. Passes that
// produced no new snapshot since the last tick are skipped.
type Publisher struct {
	transport Transport
	source    SnapshotSource
	meter     *analysis.BandMeter
	interval  time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	lastGeneration uint64
}

// NewPublisher creates a publisher that forwards snapshots from source to
// transport every interval. meter may be nil to omit band levels. An
// interval <= 0 falls back to 33ms (~30 Hz).
func NewPublisher(interval time.Duration, transport Transport, source SnapshotSource, meter *analysis.BandMeter) (*Publisher, error) {
	if transport == nil {
		return nil, fmt.Errorf("publisher: transport cannot be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("publisher: snapshot source cannot be nil")
	}
	if interval <= 0 {
		interval = 33 * time.Millisecond
		applog.Warnf("Publisher: invalid interval, defaulting to %s", interval)
	}

	return &Publisher{
		transport: transport,
		source:    source,
		meter:     meter,
		interval:  interval,
	}, nil
}

// Start launches the polling goroutine. Safe to call once per Stop cycle;
// a second Start while running is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ticker != nil {
		applog.Warnf("Publisher: Start called but already running")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	done := p.doneChan
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				p.publishFrame()
			case <-done:
				return
			}
		}
	}()
}

// Stop signals the polling goroutine to exit and waits for it. Safe to
// call multiple times.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

// publishFrame forwards the latest snapshot if it is newer than the last
// one sent.
func (p *Publisher) publishFrame() {
	s := p.source.Latest()
	if s == nil || s.Generation == p.lastGeneration {
		return
	}
	p.lastGeneration = s.Generation

	binHz := 0.0
	if len(s.BinFrequencies) > 1 {
		binHz = s.BinFrequencies[1]
	}
	frame := &Frame{
		Type:       "spectrum",
		Generation: s.Generation,
		Timestamp:  time.Now().UnixNano(),
		BinHz:      binHz,
		Smoothed:   s.Smoothed,
		PeakHold:   s.PeakHold,
		Peaks:      s.Peaks,
	}
	if p.meter != nil {
		frame.Bands = p.meter.Measure(s)
	}

	if err := p.transport.Send(frame); err != nil {
		applog.Errorf("Publisher: error sending frame: %v", err)
	}
}
