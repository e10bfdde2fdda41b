package mail

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/certhub/internal/logging"
	"github.com/dmitrijs2005/certhub/internal/server/render"
)

var ErrQueueFull = errors.New("mail queue is full")

// ArtifactSource renders the downloadable artifact of a certificate.
type ArtifactSource interface {
	Artifact(ctx context.Context, certID int64) (*render.Artifact, error)
}

type jobKind int

const (
	jobCertificate jobKind = iota
	jobCode
)

type job struct {
	kind   jobKind
	to     string
	certID int64
	code   string
}

// Dispatcher sends mail from a bounded queue on background workers.
// Enqueueing never blocks; a full queue drops the message and logs it.
type Dispatcher struct {
	sender    Sender
	artifacts ArtifactSource
	queue     chan job
	workers   int
	logger    logging.Logger

	wg sync.WaitGroup
}

func NewDispatcher(sender Sender, artifacts ArtifactSource, queueSize, workers int, logger logging.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		sender:    sender,
		artifacts: artifacts,
		queue:     make(chan job, queueSize),
		workers:   workers,
		logger:    logger.With("module", "mail"),
	}
}

// Start launches the workers. They exit when ctx is done; Wait blocks
// until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.run(ctx)
		}()
	}
}

func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-d.queue:
			if err := d.handle(ctx, j); err != nil {
				d.logger.Error(ctx, "mail delivery failed", "to", j.to, "cert_id", j.certID, "error", err)
			}
		}
	}
}

func (d *Dispatcher) enqueue(j job) error {
	select {
	case d.queue <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

// EnqueueCertificate schedules delivery of the certificate artifact to.
func (d *Dispatcher) EnqueueCertificate(ctx context.Context, certID int64, to string) {
	if err := d.enqueue(job{kind: jobCertificate, to: to, certID: certID}); err != nil {
		d.logger.Warn(ctx, "certificate mail dropped", "to", to, "cert_id", certID, "error", err)
	}
}

// SendCode implements otp.Notifier.
func (d *Dispatcher) SendCode(ctx context.Context, email, code string) error {
	if err := d.enqueue(job{kind: jobCode, to: email, code: code}); err != nil {
		return fmt.Errorf("code for %s: %w", email, err)
	}
	return nil
}

func (d *Dispatcher) handle(ctx context.Context, j job) error {
	switch j.kind {
	case jobCode:
		return d.sender.Send(ctx, Email{
			To:      []string{j.to},
			Subject: "Your verification code",
			Body:    fmt.Sprintf("Your verification code is %s. It can be used once.", j.code),
		})
	case jobCertificate:
		a, err := d.artifacts.Artifact(ctx, j.certID)
		if err != nil {
			return fmt.Errorf("render certificate %d: %w", j.certID, err)
		}
		return d.sender.Send(ctx, Email{
			To:      []string{j.to},
			Subject: "Your Certificate",
			Body:    "Please find your certificate attached.",
			Attachments: []Attachment{{
				Filename:    a.Filename,
				ContentType: a.ContentType,
				Data:        a.Data,
			}},
		})
	default:
		return fmt.Errorf("unknown mail job %d", j.kind)
	}
}
