package activity

import (
	"context"
	"log"
	"sync"
	"time"
)

// Submitter is the persistence backend's block ingestion endpoint.
type Submitter interface {
	SubmitBlock(ctx context.Context, rec *Record) error
}

// HoursUpdater is the persistence backend's task-hours endpoint.
type HoursUpdater interface {
	UpdateActualHours(ctx context.Context, taskID int64, hours float64) error
}

// DeliveryMetrics receives delivery outcomes.
type DeliveryMetrics interface {
	BlockDelivered(ctx context.Context, score ActivityScore)
	BlockDropped(ctx context.Context, reason string)
	HoursUpdateFailed(ctx context.Context)
}

// Drop reasons reported to DeliveryMetrics.
const (
	DropReasonEncode  = "encode"
	DropReasonBackend = "backend"
)

type noopMetrics struct{}

func (noopMetrics) BlockDelivered(context.Context, ActivityScore) {}
func (noopMetrics) BlockDropped(context.Context, string)          {}
func (noopMetrics) HoursUpdateFailed(context.Context)             {}

// DeliveryConfig bounds the asynchronous delivery work.
type DeliveryConfig struct {
	// Timeout bounds one backend call.
	Timeout time.Duration
	// CaptureWait bounds how long a finalized block waits for its screenshot.
	CaptureWait time.Duration
}

// Delivery submits finalized blocks and hour updates without blocking the
// caller. Each submission is attempted once; failures are logged, counted
// and the block is dropped.
type Delivery struct {
	submitter Submitter
	hours     HoursUpdater
	metrics   DeliveryMetrics
	cfg       DeliveryConfig

	wg sync.WaitGroup
}

func NewDelivery(submitter Submitter, hours HoursUpdater, metrics DeliveryMetrics, cfg DeliveryConfig) *Delivery {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CaptureWait <= 0 {
		cfg.CaptureWait = 30 * time.Second
	}
	return &Delivery{
		submitter: submitter,
		hours:     hours,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// Submit takes ownership of b and delivers it in the background.
func (d *Delivery) Submit(b *Block, score ActivityScore) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(b, score)
	}()
}

func (d *Delivery) deliver(b *Block, score ActivityScore) {
	b.resolveScreenshot(d.cfg.CaptureWait)

	rec, err := NewRecord(b, score)
	if err != nil {
		log.Printf("Block %s dropped: %v", b.ID, err)
		d.metrics.BlockDropped(context.Background(), DropReasonEncode)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
	defer cancel()

	if err := d.submitter.SubmitBlock(ctx, rec); err != nil {
		log.Printf("Block %s dropped, backend unavailable: %v", b.ID, err)
		d.metrics.BlockDropped(ctx, DropReasonBackend)
		return
	}

	log.Printf("Block %s delivered: %d active minutes, activity %d%%", b.ID, score.ActiveMinutes, score.ActivityPercentage)
	d.metrics.BlockDelivered(ctx, score)
}

// UpdateHours pushes the task's cumulative actual hours in the background.
func (d *Delivery) UpdateHours(taskID int64, hours float64) {
	if d.hours == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
		defer cancel()

		if err := d.hours.UpdateActualHours(ctx, taskID, hours); err != nil {
			log.Printf("Failed to save actual hours for task %d: %v", taskID, err)
			d.metrics.HoursUpdateFailed(ctx)
			return
		}
		log.Printf("Saved actual hours for task %d: %.4f", taskID, hours)
	}()
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (d *Delivery) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
