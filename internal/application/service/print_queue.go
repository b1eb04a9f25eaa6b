package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/internal/config"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
	"github.com/sangkips/pdv-engine/internal/domain/enum"
	"github.com/sangkips/pdv-engine/internal/infrastructure/metrics"
	"github.com/sangkips/pdv-engine/pkg/apperror"
	"github.com/sangkips/pdv-engine/pkg/printer"
)

const (
	defaultPrintTimeout = 10 * time.Second
	maxSettledJobs      = 200
)

// PrintDevice is a named printer the queue can target.
type PrintDevice struct {
	Name    string
	Type    string
	Printer printer.Printer
}

// PrinterStatus reports one device.
type PrinterStatus struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Connected bool   `json:"connected"`
	Busy      bool   `json:"busy"`
	Queued    int    `json:"queued"`
}

type printStatusUpdater interface {
	UpdatePrintStatus(ctx context.Context, id uuid.UUID, status enum.PrintStatus) error
}

// PrintQueueOptions configures a PrintQueue.
type PrintQueueOptions struct {
	Timeout time.Duration
	Width   int
	Header  entity.ReceiptHeader
	// Sales receives the status of receipt jobs; may be nil.
	Sales printStatusUpdater
}

type deviceQueue struct {
	PrintDevice
	queue []*entity.PrintJob
	busy  bool
}

// PrintQueue runs one FIFO per device. A device prints one job at a time;
// a failed job is recorded and the next job starts regardless.
type PrintQueue struct {
	opts          PrintQueueOptions
	defaultDevice string

	mu      sync.Mutex
	devices map[string]*deviceQueue
	jobs    map[uuid.UUID]*entity.PrintJob
	order   []uuid.UUID
	subs    map[int]chan []entity.PrintJob
	nextSub int
	wg      sync.WaitGroup

	mirrorMu sync.Mutex
}

// NewPrintQueue creates a queue over the given devices. The first device is
// the default target.
func NewPrintQueue(devices []PrintDevice, opts PrintQueueOptions) (*PrintQueue, error) {
	if len(devices) == 0 {
		return nil, fmt.Errorf("print queue: at least one device is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultPrintTimeout
	}
	q := &PrintQueue{
		opts:          opts,
		defaultDevice: devices[0].Name,
		devices:       make(map[string]*deviceQueue, len(devices)),
		jobs:          make(map[uuid.UUID]*entity.PrintJob),
		subs:          make(map[int]chan []entity.PrintJob),
	}
	for _, d := range devices {
		if _, dup := q.devices[d.Name]; dup {
			return nil, fmt.Errorf("print queue: duplicate device %q", d.Name)
		}
		q.devices[d.Name] = &deviceQueue{PrintDevice: d}
	}
	return q, nil
}

// BuildPrintDevices creates the configured printers. The main printer is
// named by cfg.Device; extra devices use the form name=type:target.
func BuildPrintDevices(cfg *config.PrinterConfig) ([]PrintDevice, error) {
	primary, err := printer.NewPrinterFromConfig(cfg.Type, cfg.USBPath, cfg.Address)
	if err != nil {
		return nil, err
	}
	name := cfg.Device
	if name == "" {
		name = "default"
	}
	devices := []PrintDevice{{Name: name, Type: cfg.Type, Printer: primary}}

	for _, entry := range cfg.ExtraList {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		devName, rest, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("printer: invalid device %q, want name=type:target", entry)
		}
		typ, target, _ := strings.Cut(rest, ":")
		var p printer.Printer
		switch typ {
		case "usb":
			p, err = printer.NewPrinterFromConfig(typ, target, "")
		default:
			p, err = printer.NewPrinterFromConfig(typ, "", target)
		}
		if err != nil {
			return nil, err
		}
		devices = append(devices, PrintDevice{Name: strings.TrimSpace(devName), Type: typ, Printer: p})
	}
	return devices, nil
}

// DefaultDevice returns the name of the default target.
func (q *PrintQueue) DefaultDevice() string {
	return q.defaultDevice
}

// Enqueue appends a job to the device queue and starts the device worker
// when it is idle. An empty device means the default one.
func (q *PrintQueue) Enqueue(ctx context.Context, kind entity.PrintJobKind, payload []byte, device string, saleID *uuid.UUID) (*entity.PrintJob, error) {
	return q.enqueue(ctx, &entity.PrintJob{
		Kind:         kind,
		Payload:      payload,
		TargetDevice: device,
		SaleID:       saleID,
	})
}

func (q *PrintQueue) enqueue(ctx context.Context, job *entity.PrintJob) (*entity.PrintJob, error) {
	if job.TargetDevice == "" {
		job.TargetDevice = q.defaultDevice
	}
	job.ID = uuid.New()
	job.Status = enum.PrintStatusPending
	job.EnqueuedAt = time.Now()

	q.mu.Lock()
	dev, ok := q.devices[job.TargetDevice]
	if !ok {
		q.mu.Unlock()
		return nil, apperror.ErrUnknownDevice.WithMessage("Unknown print device " + job.TargetDevice)
	}
	q.jobs[job.ID] = job
	q.order = append(q.order, job.ID)
	dev.queue = append(dev.queue, job)
	if !dev.busy {
		dev.busy = true
		q.wg.Add(1)
		go q.work(dev)
	}
	out := job.Copy()
	q.publishLocked()
	q.mu.Unlock()

	q.mirror(ctx, &out)
	slog.InfoContext(ctx, "print job queued", "job_id", out.ID, "kind", out.Kind, "device", out.TargetDevice)
	return &out, nil
}

// work drains one device queue. It exits when the queue is empty; the
// next enqueue starts a new worker.
func (q *PrintQueue) work(dev *deviceQueue) {
	defer q.wg.Done()
	ctx := context.Background()

	for {
		q.mu.Lock()
		if len(dev.queue) == 0 {
			dev.busy = false
			q.publishLocked()
			q.mu.Unlock()
			return
		}
		job := dev.queue[0]
		dev.queue = dev.queue[1:]
		now := time.Now()
		job.Status = enum.PrintStatusPrinting
		job.StartedAt = &now
		payload := job.Payload
		started := job.Copy()
		q.publishLocked()
		q.mu.Unlock()

		q.mirror(ctx, &started)
		err := q.write(dev.Printer, payload)

		q.mu.Lock()
		settled := time.Now()
		job.SettledAt = &settled
		if err != nil {
			job.Status = enum.PrintStatusFailed
			job.Error = err.Error()
		} else {
			job.Status = enum.PrintStatusCompleted
		}
		done := job.Copy()
		q.pruneLocked()
		q.publishLocked()
		q.mu.Unlock()

		metrics.PrintJobs.WithLabelValues(dev.Name, string(done.Kind), done.Status.String()).Inc()
		if err != nil {
			slog.WarnContext(ctx, "print job failed", "job_id", done.ID, "kind", done.Kind, "device", dev.Name, "error", err)
		}
		q.mirror(ctx, &done)
	}
}

// write sends a payload to a device, bounded by the queue timeout. A device
// that ignores the deadline is abandoned and the job is failed.
func (q *PrintQueue) write(p printer.Printer, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), q.opts.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Print(ctx, payload) }()

	select {
	case err := <-done:
		if err != nil && ctx.Err() != nil {
			return fmt.Errorf("print timed out after %s: %w", q.opts.Timeout, err)
		}
		return err
	case <-ctx.Done():
		return fmt.Errorf("print timed out after %s", q.opts.Timeout)
	}
}

// mirror keeps a sale's print status in step with its receipt job. Calls
// are serialized and read the job's current status, so the last write
// always carries the latest state.
func (q *PrintQueue) mirror(ctx context.Context, job *entity.PrintJob) {
	if q.opts.Sales == nil || job.Kind != entity.PrintReceipt || job.SaleID == nil {
		return
	}
	q.mirrorMu.Lock()
	defer q.mirrorMu.Unlock()

	status := job.Status
	q.mu.Lock()
	if current, ok := q.jobs[job.ID]; ok {
		status = current.Status
	}
	q.mu.Unlock()

	if err := q.opts.Sales.UpdatePrintStatus(ctx, *job.SaleID, status); err != nil {
		slog.WarnContext(ctx, "failed to update sale print status", "sale_id", *job.SaleID, "error", err)
	}
}

// Retry queues a copy of a failed job at the tail of its device queue.
func (q *PrintQueue) Retry(ctx context.Context, jobID uuid.UUID) (*entity.PrintJob, error) {
	q.mu.Lock()
	old, ok := q.jobs[jobID]
	if !ok {
		q.mu.Unlock()
		return nil, apperror.NewNotFoundError("Print job")
	}
	if old.Status != enum.PrintStatusFailed {
		q.mu.Unlock()
		return nil, apperror.ErrPrintJobNotFailed
	}
	retryOf := old.ID
	retry := &entity.PrintJob{
		Kind:         old.Kind,
		Payload:      old.Payload,
		TargetDevice: old.TargetDevice,
		SaleID:       old.SaleID,
		RetryOf:      &retryOf,
	}
	q.mu.Unlock()

	return q.enqueue(ctx, retry)
}

// Get returns a job by id.
func (q *PrintQueue) Get(jobID uuid.UUID) (*entity.PrintJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[jobID]
	if !ok {
		return nil, apperror.NewNotFoundError("Print job")
	}
	out := job.Copy()
	return &out, nil
}

// Jobs returns every known job in enqueue order.
func (q *PrintQueue) Jobs() []entity.PrintJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

func (q *PrintQueue) snapshotLocked() []entity.PrintJob {
	out := make([]entity.PrintJob, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, q.jobs[id].Copy())
	}
	return out
}

// Subscribe returns a channel receiving the job list after every change.
// Slow readers only see the latest list. Call the returned func to stop.
func (q *PrintQueue) Subscribe() (<-chan []entity.PrintJob, func()) {
	ch := make(chan []entity.PrintJob, 1)

	q.mu.Lock()
	id := q.nextSub
	q.nextSub++
	q.subs[id] = ch
	ch <- q.snapshotLocked()
	q.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			q.mu.Lock()
			delete(q.subs, id)
			close(ch)
			q.mu.Unlock()
		})
	}
}

func (q *PrintQueue) publishLocked() {
	if len(q.subs) == 0 {
		return
	}
	snap := q.snapshotLocked()
	for _, ch := range q.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// pruneLocked forgets the oldest settled jobs beyond maxSettledJobs.
func (q *PrintQueue) pruneLocked() {
	settled := 0
	for _, id := range q.order {
		if q.jobs[id].Status.Settled() {
			settled++
		}
	}
	if settled <= maxSettledJobs {
		return
	}
	drop := settled - maxSettledJobs
	kept := q.order[:0]
	for _, id := range q.order {
		if drop > 0 && q.jobs[id].Status.Settled() {
			delete(q.jobs, id)
			drop--
			continue
		}
		kept = append(kept, id)
	}
	q.order = kept
}

// Status reports every device, default first.
func (q *PrintQueue) Status() []PrinterStatus {
	q.mu.Lock()
	out := make([]PrinterStatus, 0, len(q.devices))
	var devs []*deviceQueue
	for _, d := range q.devices {
		st := PrinterStatus{Name: d.Name, Type: d.Type, Busy: d.busy, Queued: len(d.queue)}
		out = append(out, st)
		devs = append(devs, d)
	}
	q.mu.Unlock()

	// IsConnected may dial, so it runs outside the lock.
	for i, d := range devs {
		out[i].Connected = d.Printer.IsConnected()
	}
	for i := range out {
		if out[i].Name == q.defaultDevice && i != 0 {
			out[0], out[i] = out[i], out[0]
			break
		}
	}
	return out
}

// EnqueueReceipt prints the customer receipt of a sale.
func (q *PrintQueue) EnqueueReceipt(ctx context.Context, sale *entity.Sale) (*entity.PrintJob, error) {
	payload := FormatReceipt(BuildReceipt(sale, q.opts.Header), q.opts.Width)
	id := sale.ID
	return q.Enqueue(ctx, entity.PrintReceipt, payload, "", &id)
}

// EnqueueFiscalDocument prints the authorized fiscal document of a sale.
func (q *PrintQueue) EnqueueFiscalDocument(ctx context.Context, sale *entity.Sale, emission *entity.FiscalEmission) (*entity.PrintJob, error) {
	payload := FormatFiscalDocument(sale, emission, q.opts.Header, q.opts.Width)
	id := sale.ID
	return q.Enqueue(ctx, entity.PrintFiscalDocument, payload, "", &id)
}

// EnqueueReport prints a session cash report.
func (q *PrintQueue) EnqueueReport(ctx context.Context, summary *SessionSummary) (*entity.PrintJob, error) {
	return q.Enqueue(ctx, entity.PrintReport, FormatReport(summary, q.opts.Header, q.opts.Width), "", nil)
}

// EnqueueTestPage prints a test page on device, or the default device when
// empty.
func (q *PrintQueue) EnqueueTestPage(ctx context.Context, device string) (*entity.PrintJob, error) {
	if device == "" {
		device = q.defaultDevice
	}
	payload := FormatTestPage(device, q.opts.Header, q.opts.Width, time.Now())
	return q.Enqueue(ctx, entity.PrintTestPage, payload, device, nil)
}

// Wait blocks until every device worker is idle.
func (q *PrintQueue) Wait() {
	q.wg.Wait()
}
