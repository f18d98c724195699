// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"spectrum/internal/analysis"
	applog "spectrum/internal/log"
)

// packetSender is the transport used by Publisher. *Sender satisfies it.
type packetSender interface {
	Send(data []byte) error
}

// SnapshotSource supplies the most recent analysis result.
type SnapshotSource interface {
	Latest() *analysis.Snapshot
}

// Publisher polls a snapshot source at a fixed interval and sends binary
// spectrum packets. The packet layout is:
//
//	uint32  sequence number
//	int64   unix timestamp (nanoseconds)
//	uint16  bin count
//	float32 smoothed magnitude per bin (dB)
//	uint16  peak count
//	float32 frequency (Hz), float32 magnitude (dB) per peak
//
// All fields are big-endian.
type Publisher struct {
	sender   packetSender
	source   SnapshotSource
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu             sync.Mutex
	running        bool
	sequence       uint32
	lastGeneration uint64

	buf     bytes.Buffer
	f32Bins []float32
}

// NewPublisher creates a Publisher sending at the given interval.
func NewPublisher(interval time.Duration, sender packetSender, source SnapshotSource) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("sender must not be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("snapshot source must not be nil")
	}
	if interval <= 0 {
		interval = 33 * time.Millisecond
	}
	return &Publisher{
		sender:   sender,
		source:   source,
		interval: interval,
	}, nil
}

// Start begins the publishing loop. No-op if already running.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopOnce = sync.Once{}
	p.doneChan = make(chan struct{})
	p.ticker = time.NewTicker(p.interval)
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-p.doneChan:
				return
			case <-p.ticker.C:
				if err := p.publishPacket(); err != nil {
					applog.Warnf("UDP: publish failed: %v", err)
				}
			}
		}
	}()
}

// Stop halts the publishing loop and waits for it to exit.
func (p *Publisher) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		if !p.running {
			p.mu.Unlock()
			return
		}
		p.running = false
		close(p.doneChan)
		p.ticker.Stop()
		p.mu.Unlock()

		p.wg.Wait()
	})
}

func (p *Publisher) publishPacket() error {
	s := p.source.Latest()
	if s == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if s.Generation == p.lastGeneration {
		return nil
	}
	p.lastGeneration = s.Generation
	p.sequence++

	bins := s.Smoothed
	if len(p.f32Bins) < len(bins) {
		p.f32Bins = make([]float32, len(bins))
	}
	for i, v := range bins {
		p.f32Bins[i] = float32(v)
	}

	p.buf.Reset()
	binary.Write(&p.buf, binary.BigEndian, p.sequence)
	binary.Write(&p.buf, binary.BigEndian, time.Now().UnixNano())
	binary.Write(&p.buf, binary.BigEndian, uint16(len(bins)))
	binary.Write(&p.buf, binary.BigEndian, p.f32Bins[:len(bins)])
	binary.Write(&p.buf, binary.BigEndian, uint16(len(s.Peaks)))
	for _, pk := range s.Peaks {
		binary.Write(&p.buf, binary.BigEndian, float32(pk.Frequency))
		binary.Write(&p.buf, binary.BigEndian, float32(pk.MagnitudeDB))
	}

	return p.sender.Send(p.buf.Bytes())
}
