package authgate

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type mailJob struct {
	recipient string
	token     string
}

// mailDispatcher decouples mail delivery from the request/response cycle:
// requests enqueue, a single worker goroutine dials out with a bounded retry
// policy. Delivery failures are logged and swallowed; they never change the
// outcome of the reset request that queued them.
type mailDispatcher struct {
	cfg       MailDispatchConfig
	mailer    Mailer
	appURL    string
	log       zerolog.Logger
	ch        chan mailJob
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newMailDispatcher(cfg MailDispatchConfig, mailer Mailer, appURL string, log zerolog.Logger) *mailDispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if mailer == nil {
		mailer = nopMailer{}
	}

	d := &mailDispatcher{
		cfg:    cfg,
		mailer: mailer,
		appURL: appURL,
		log:    log,
		ch:     make(chan mailJob, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *mailDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case job := <-d.ch:
			d.deliver(job)
		case <-d.done:
			for {
				select {
				case job := <-d.ch:
					d.deliver(job)
				default:
					return
				}
			}
		}
	}
}

func (d *mailDispatcher) deliver(job mailJob) {
	link := d.resetLink(job.token)

	var err error
	for attempt := 0; attempt <= d.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(d.cfg.RetryBackoff):
			case <-d.done:
			}
		}
		if err = d.mailer.SendResetLink(context.Background(), job.recipient, link); err == nil {
			return
		}
	}

	d.log.Error().Err(err).Str("recipient", job.recipient).Msg("reset mail delivery failed")
}

func (d *mailDispatcher) resetLink(token string) string {
	return d.appURL + "/reset-password?token=" + url.QueryEscape(token)
}

// Enqueue hands a job to the worker. With DropIfFull set it never blocks;
// a full buffer increments the dropped counter instead.
func (d *mailDispatcher) Enqueue(recipient, token string) {
	if d == nil || d.closed.Load() {
		return
	}

	job := mailJob{recipient: recipient, token: token}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- job:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- job:
	case <-d.done:
	}
}

// Close drains the queue and stops the worker. Safe to call more than once.
func (d *mailDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped reports how many jobs were discarded because the buffer was full.
func (d *mailDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
