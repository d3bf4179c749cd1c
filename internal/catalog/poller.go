package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Lixing-Zhang/tailortech/internal/models"
)

// DefaultPollInterval is used when NewPoller gets a non-positive interval
const DefaultPollInterval = 30 * time.Second

// Snapshot is the last refreshed view of the catalog
type Snapshot struct {
	Tailors      []models.Tailor
	Transactions []models.Transaction
	UpdatedAt    time.Time
	Err          error
}

// Poller refreshes a tailor listing, and optionally a user's transactions,
// at a fixed interval. Readers see the last complete snapshot.
type Poller struct {
	svc      *Service
	api      API
	query    Query
	userID   int64
	interval time.Duration
	log      *zap.Logger
	now      func() time.Time

	mu   sync.RWMutex
	snap Snapshot
}

// PollerOption configures a Poller
type PollerOption func(*Poller)

// WithQuery sets the tailor query refreshed on every tick
func WithQuery(q Query) PollerOption {
	return func(p *Poller) { p.query = q }
}

// WithTransactions also refreshes the requests and orders of userID
func WithTransactions(userID int64) PollerOption {
	return func(p *Poller) { p.userID = userID }
}

func WithPollerLogger(log *zap.Logger) PollerOption {
	return func(p *Poller) {
		if log != nil {
			p.log = log
		}
	}
}

func NewPoller(api API, interval time.Duration, opts ...PollerOption) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	p := &Poller{
		svc:      NewService(api),
		api:      api,
		interval: interval,
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run refreshes immediately and then on every tick until ctx is done
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refreshLogged(ctx)
	for {
		select {
		case <-ticker.C:
			p.refreshLogged(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Poller) refreshLogged(ctx context.Context) {
	if err := p.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.log.Warn("catalog refresh failed", zap.Error(err))
	}
}

// Refresh fetches a new snapshot. On failure the previous data is kept and
// Snapshot().Err reports the error.
func (p *Poller) Refresh(ctx context.Context) error {
	tailors, err := p.svc.SearchTailors(ctx, p.query)
	if err != nil {
		p.fail(err)
		return err
	}

	var txns []models.Transaction
	if p.userID != 0 {
		requests, err := p.api.UserRequests(ctx, p.userID)
		if err != nil {
			p.fail(err)
			return err
		}
		orders, err := p.api.UserOrders(ctx, p.userID)
		if err != nil {
			p.fail(err)
			return err
		}
		txns = append(requests, orders...)
	}

	p.mu.Lock()
	p.snap = Snapshot{Tailors: tailors, Transactions: txns, UpdatedAt: p.now()}
	p.mu.Unlock()
	return nil
}

func (p *Poller) fail(err error) {
	p.mu.Lock()
	p.snap.Err = err
	p.mu.Unlock()
}

// Snapshot returns a copy of the last snapshot
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := p.snap
	s.Tailors = append([]models.Tailor(nil), p.snap.Tailors...)
	s.Transactions = append([]models.Transaction(nil), p.snap.Transactions...)
	return s
}
