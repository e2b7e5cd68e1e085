package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/nicestack/user-service/internal/api/metrics"
	"github.com/nicestack/user-service/internal/core/ports"
)

const (
	defaultWorkers     = 4
	defaultBuffer      = 256
	defaultMaxAttempts = 5
)

// ErrQueueFull is returned by Enqueue when the recipient's worker channel
// has no free slot.
var ErrQueueFull = errors.New("mail queue is full")

// Options tunes the dispatcher. Zero values fall back to defaults.
type Options struct {
	Workers     int
	Buffer      int
	MaxAttempts int
	// InitialInterval is the first retry delay; later delays grow
	// exponentially.
	InitialInterval time.Duration
}

// Dispatcher delivers mail on a fixed set of workers. Messages are sharded by
// recipient so mails to one address go out in the order they were queued.
type Dispatcher struct {
	workers []chan ports.MailMessage
	sender  ports.MailSender
	opts    Options
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher delivering through sender.
func NewDispatcher(sender ports.MailSender, opts Options, log zerolog.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	d := &Dispatcher{
		workers: make([]chan ports.MailMessage, opts.Workers),
		sender:  sender,
		opts:    opts,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.MailMessage, opts.Buffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands msg to the worker responsible for its recipient. It never
// blocks: a full channel drops the message and returns ErrQueueFull.
func (d *Dispatcher) Enqueue(msg ports.MailMessage) error {
	idx := d.shardIndex(msg.To)
	select {
	case d.workers[idx] <- msg:
		metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	default:
		metrics.MailDroppedTotal.WithLabelValues(string(msg.Kind)).Inc()
		return ErrQueueFull
	}
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recipient))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.MailMessage) {
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			metrics.MailQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.deliver(ctx, id, msg)
		}
	}
}

// deliver sends msg, retrying transient failures with exponential backoff.
func (d *Dispatcher) deliver(ctx context.Context, worker int, msg ports.MailMessage) {
	start := time.Now()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.opts.InitialInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, d.sender.Send(ctx, msg)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(d.opts.MaxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			d.log.Warn().Err(err).
				Str("kind", string(msg.Kind)).
				Int("worker_id", worker).
				Dur("retry_in", wait).
				Msg("mail delivery failed, retrying")
		}),
	)

	metrics.MailDeliveryDuration.WithLabelValues(string(msg.Kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MailDeliveriesTotal.WithLabelValues(string(msg.Kind), "failed").Inc()
		d.log.Error().Err(err).
			Str("kind", string(msg.Kind)).
			Int("worker_id", worker).
			Msg("mail delivery failed")
		return
	}
	metrics.MailDeliveriesTotal.WithLabelValues(string(msg.Kind), "sent").Inc()
	d.log.Debug().Str("kind", string(msg.Kind)).Int("worker_id", worker).Msg("mail delivered")
}
