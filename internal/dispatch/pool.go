package dispatch

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"payment-dispatcher/internal/health"
	"payment-dispatcher/internal/models"
	"payment-dispatcher/internal/queue"
)

type Queue interface {
	Enqueue(ctx context.Context, p models.PendingPayment) error
	Dequeue(ctx context.Context, timeout time.Duration) (models.PendingPayment, bool, error)
	Ping(ctx context.Context) error
}

type Locker interface {
	TryAcquire(ctx context.Context, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, owner string) error
}

type Ledger interface {
	Append(ctx context.Context, rec models.DispatchRecord) error
}

type Selector interface {
	Current() health.Selection
}

type ProcessorClient interface {
	Name() models.Processor
	ProcessPayment(ctx context.Context, p models.PendingPayment, requestedAt time.Time) error
}

type Config struct {
	Workers        int
	LockTTL        time.Duration
	LockBackoff    time.Duration // sleep after losing the lock race
	StoreBackoff   time.Duration // sleep while the store looks down
	DequeueTimeout time.Duration // poll timeout inside the drain loop
}

// Pool runs N independent dispatch workers against one shared queue. The
// queue's atomic pop is what keeps any single item from being processed
// twice; the dispatch lock only throttles the herd so an idle queue is
// polled by one worker at a time instead of all of them in lockstep.
type Pool struct {
	cfg      Config
	queue    Queue
	lock     Locker
	ledger   Ledger
	selector Selector
	clients  map[models.Processor]ProcessorClient
}

func NewPool(cfg Config, q Queue, lock Locker, ledger Ledger, selector Selector, clients ...ProcessorClient) *Pool {
	byName := make(map[models.Processor]ProcessorClient, len(clients))
	for _, c := range clients {
		byName[c.Name()] = c
	}
	return &Pool{
		cfg:      cfg,
		queue:    q,
		lock:     lock,
		ledger:   ledger,
		selector: selector,
		clients:  byName,
	}
}

// Run blocks until ctx is cancelled and every worker has finished its
// current step. An in-flight dispatch is allowed to complete (success or
// requeue) before its worker exits.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.cfg.Workers; i++ {
		g.Go(func() error {
			p.runWorker(ctx)
			return nil
		})
	}
	return g.Wait()
}

func (p *Pool) runWorker(ctx context.Context) {
	for ctx.Err() == nil {
		// Never compete for the lock against a store believed down.
		if err := p.queue.Ping(ctx); err != nil {
			if ctx.Err() == nil {
				log.Printf("dispatch: store unreachable, backing off: %v", err)
			}
			sleep(ctx, p.cfg.StoreBackoff)
			continue
		}

		owner := uuid.NewString()
		acquired, err := p.lock.TryAcquire(ctx, owner, p.cfg.LockTTL)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("dispatch: lock acquire failed: %v", err)
			}
			sleep(ctx, p.cfg.StoreBackoff)
			continue
		}
		if !acquired {
			// Someone else is draining; not an error.
			sleep(ctx, p.cfg.LockBackoff)
			continue
		}

		p.drain(ctx)

		// Best effort: an unreleased lease is recovered by TTL expiry.
		if err := p.lock.Release(context.WithoutCancel(ctx), owner); err != nil {
			log.Printf("dispatch: lock release failed: %v", err)
		}
	}
}

// drain pops until the queue is empty, the lease window closes, or shutdown
// begins. The lease is never renewed: work past the deadline would overlap
// the next holder, and holding an idle lock starves failover.
func (p *Pool) drain(ctx context.Context) {
	leaseDeadline := time.Now().Add(p.cfg.LockTTL)

	for time.Now().Before(leaseDeadline) && ctx.Err() == nil {
		item, ok, err := p.queue.Dequeue(ctx, p.cfg.DequeueTimeout)
		if err != nil {
			var parseErr *queue.ParseError
			if errors.As(err, &parseErr) {
				log.Printf("dispatch: dropping %v", parseErr)
				continue
			}
			if ctx.Err() == nil {
				log.Printf("dispatch: dequeue failed: %v", err)
			}
			return
		}
		if !ok {
			return
		}
		p.dispatch(ctx, item)
	}
}

func (p *Pool) dispatch(ctx context.Context, item models.PendingPayment) {
	selection := p.selector.Current()
	proc, ok := selection.Processor()
	if !ok {
		// Neither processor healthy: requeue without a downstream call.
		p.requeue(ctx, item)
		return
	}

	requestedAt := time.Now().UTC()
	if err := p.clients[proc].ProcessPayment(ctx, item, requestedAt); err != nil {
		log.Printf("dispatch: %s processor rejected %s: %v", proc, item.CorrelationID, err)
		p.requeue(ctx, item)
		return
	}

	p.record(ctx, models.DispatchRecord{
		CorrelationID: item.CorrelationID,
		Amount:        item.Amount,
		RequestedAt:   requestedAt,
		Processor:     proc,
	})
}

func (p *Pool) requeue(ctx context.Context, item models.PendingPayment) {
	if err := p.queue.Enqueue(context.WithoutCancel(ctx), item); err != nil {
		log.Printf("dispatch: requeue of %s failed: %v", item.CorrelationID, err)
	}
}

// record appends the confirmed dispatch to the ledger. The processor already
// accepted the payment, so a requeue here would double-charge; retry the
// write instead and scream if the store stays down.
func (p *Pool) record(ctx context.Context, rec models.DispatchRecord) {
	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if err = p.ledger.Append(ctx, rec); err == nil {
			return
		}
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	log.Printf("dispatch: LEDGER WRITE LOST for %s (%s): %v", rec.CorrelationID, rec.Processor, err)
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
