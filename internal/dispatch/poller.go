package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/chrisdamba/homeservices/internal/clock"
	"github.com/chrisdamba/homeservices/internal/journal"
	"github.com/chrisdamba/homeservices/internal/models"
	"github.com/chrisdamba/homeservices/internal/repositories"
	"github.com/sirupsen/logrus"
)

// StatusFetcher reads the current status of an order from the backend.
type StatusFetcher interface {
	GetOrderStatus(ctx context.Context, orderID string) (models.OrderStatus, error)
}

// Callbacks are invoked from timer goroutines, never while the session is
// locked. Nil callbacks are skipped.
type Callbacks struct {
	// OnAccepted fires once the accepted message has been shown.
	OnAccepted func(orderID string)
	// OnClosed fires once when the session dismisses itself. It does not
	// fire for an explicit Close.
	OnClosed func()
	// OnUpdate receives every state change, elapsed ticks included.
	OnUpdate func(Snapshot)
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	OrderID        string
	Vendor         models.Vendor
	Outcome        Outcome
	Message        string
	LastStatus     models.OrderStatus
	ElapsedSeconds int
	Polls          int
	Closed         bool
}

// Poller starts call sessions.
type Poller struct {
	fetcher StatusFetcher
	clock   clock.Clock
	timings Timings
	log     logrus.FieldLogger
	journal *journal.Recorder
	orders  repositories.OrderRepository
}

type PollerOption func(*Poller)

func WithClock(c clock.Clock) PollerOption {
	return func(p *Poller) {
		p.clock = c
	}
}

func WithTimings(t Timings) PollerOption {
	return func(p *Poller) {
		p.timings = t
	}
}

func WithLogger(l logrus.FieldLogger) PollerOption {
	return func(p *Poller) {
		p.log = l
	}
}

// WithJournal records every polled status and the final outcome.
func WithJournal(r *journal.Recorder) PollerOption {
	return func(p *Poller) {
		p.journal = r
	}
}

// WithOrderRepository keeps the cached order status in step with the polls.
func WithOrderRepository(r repositories.OrderRepository) PollerOption {
	return func(p *Poller) {
		p.orders = r
	}
}

func NewPoller(fetcher StatusFetcher, opts ...PollerOption) *Poller {
	p := &Poller{
		fetcher: fetcher,
		clock:   clock.Real(),
		timings: DefaultTimings(),
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Poller) Clock() clock.Clock {
	return p.clock
}

func (p *Poller) Timings() Timings {
	return p.timings
}

// Session tracks one order from the IVR call until it is resolved or torn
// down.
type Session struct {
	poller  *Poller
	orderID string
	vendor  models.Vendor
	cb      Callbacks
	log     logrus.FieldLogger
	started time.Time

	// ctx is cancelled on teardown, aborting in-flight requests
	ctx        context.Context
	cancel     context.CancelFunc
	stopParent func() bool
	done       chan struct{}

	mu         sync.Mutex
	closed     bool
	outcome    Outcome
	lastStatus models.OrderStatus
	elapsed    int
	polls      int
	issued     uint64 // sequence number of the latest status request
	applied    uint64 // sequence number of the latest response applied
	tick       clock.Timer
	poll       clock.Timer
	timeout    clock.Timer
	staged     []clock.Timer
}

// Start begins the elapsed tick, the status poll and the call timeout for
// orderID. Cancelling ctx tears the session down like Close.
func (p *Poller) Start(ctx context.Context, orderID string, vendor models.Vendor, cb Callbacks) *Session {
	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		poller:  p,
		orderID: orderID,
		vendor:  vendor,
		cb:      cb,
		log: p.log.WithFields(logrus.Fields{
			"order_id":  orderID,
			"vendor_id": vendor.ID,
		}),
		started: p.clock.Now(),
		ctx:     sctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		outcome: OutcomeCalling,
	}

	s.mu.Lock()
	s.tick = clock.Every(p.clock, p.timings.TickInterval, s.onTick)
	s.poll = clock.Every(p.clock, p.timings.PollInterval, s.pollOnce)
	s.timeout = p.clock.AfterFunc(p.timings.CallTimeout, s.onTimeout)
	s.stopParent = context.AfterFunc(ctx, s.Close)
	s.mu.Unlock()

	s.log.Info("Call session started")
	return s
}

func (s *Session) OrderID() string {
	return s.orderID
}

// Done is closed when the session is torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		OrderID:        s.orderID,
		Vendor:         s.vendor,
		Outcome:        s.outcome,
		Message:        s.outcome.Message(),
		LastStatus:     s.lastStatus,
		ElapsedSeconds: s.elapsed,
		Polls:          s.polls,
		Closed:         s.closed,
	}
}

// Close tears the session down: every timer is stopped, in-flight requests
// are cancelled and no callback fires afterwards. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	torn := s.teardownLocked()
	s.mu.Unlock()
	if torn {
		s.log.Info("Call session closed")
	}
}

func (s *Session) teardownLocked() bool {
	if s.closed {
		return false
	}
	s.closed = true
	s.tick.Stop()
	s.stopPollingLocked()
	for _, t := range s.staged {
		t.Stop()
	}
	s.staged = nil
	s.cancel()
	s.stopParent()
	close(s.done)
	return true
}

func (s *Session) stopPollingLocked() {
	s.poll.Stop()
	s.timeout.Stop()
}

func (s *Session) onTick() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.elapsed++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.update(snap)
}

func (s *Session) pollOnce() {
	seq, ok := s.beginPoll()
	if !ok {
		return
	}
	status, err := s.poller.fetcher.GetOrderStatus(s.ctx, s.orderID)
	s.finishPoll(seq, status, err)
}

// beginPoll numbers a new status request. It refuses once the session is
// closed or resolved.
func (s *Session) beginPoll() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.outcome.IsTerminal() {
		return 0, false
	}
	s.issued++
	return s.issued, true
}

// finishPoll applies the response to request seq. Responses that arrive
// after teardown, or after a newer response was applied, are dropped.
func (s *Session) finishPoll(seq uint64, raw models.OrderStatus, err error) {
	if err != nil {
		if s.ctx.Err() == nil {
			s.log.WithError(err).Warn("Error polling order status")
		}
		return
	}

	status := models.ParseOrderStatus(string(raw))
	log := s.log.WithField("status", raw)
	if status == models.OrderStatusUnknown {
		log.Debug("Unrecognised order status, still calling")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		log.Debug("Dropping status response after close")
		return
	}
	if seq <= s.applied {
		s.mu.Unlock()
		log.WithField("seq", seq).Debug("Dropping out-of-order status response")
		return
	}
	s.applied = seq
	s.polls++
	changed := s.lastStatus != status
	s.lastStatus = status
	from := s.outcome
	_, moved := s.fireLocked(triggerForStatus(status))
	snap := s.snapshotLocked()
	s.mu.Unlock()

	log.WithField("outcome", snap.Outcome).Debug("Order status polled")
	s.record(models.EventStatusPolled, snap, string(raw))
	if changed && status != models.OrderStatusUnknown {
		s.saveStatus(status)
	}
	if moved {
		s.resolved(from, snap)
	}
	s.update(snap)
}

func (s *Session) onTimeout() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	from := s.outcome
	s.stopPollingLocked()
	_, moved := s.fireLocked(triggerTimeout)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if moved {
		s.log.Info("Call timed out")
		s.resolved(from, snap)
		s.update(snap)
	}
}

// fireLocked looks the trigger up in the transition table and applies the
// result.
func (s *Session) fireLocked(on trigger) (transition, bool) {
	tr, ok := nextTransition(s.outcome, on)
	if !ok {
		return transition{}, false
	}
	s.outcome = tr.next
	if tr.next.IsTerminal() {
		s.stopPollingLocked()
	}

	t := s.poller.timings
	switch tr.effect {
	case effectAccept:
		s.stageLocked(t.AcceptedDelay, s.fireAccepted)
	case effectDismiss:
		s.stageLocked(t.DismissDelay, s.fireClosed)
	}
	return tr, true
}

func (s *Session) stageLocked(d time.Duration, f func()) {
	s.staged = append(s.staged, s.poller.clock.AfterFunc(d, f))
}

func (s *Session) fireAccepted() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.stageLocked(s.poller.timings.CloseDelay, s.fireClosed)
	s.mu.Unlock()

	if s.cb.OnAccepted != nil {
		s.cb.OnAccepted(s.orderID)
	}
}

// fireClosed dismisses the session. The teardown happens before OnClosed
// runs, so OnClosed fires at most once and nothing fires after it.
func (s *Session) fireClosed() {
	s.mu.Lock()
	torn := s.teardownLocked()
	s.mu.Unlock()
	if !torn {
		return
	}

	s.log.Info("Call session dismissed")
	if s.cb.OnClosed != nil {
		s.cb.OnClosed()
	}
}

func (s *Session) update(snap Snapshot) {
	if s.cb.OnUpdate != nil {
		s.cb.OnUpdate(snap)
	}
}

func (s *Session) resolved(from Outcome, snap Snapshot) {
	s.log.WithFields(logrus.Fields{
		"from":    from,
		"outcome": snap.Outcome,
	}).Info(snap.Message)
	s.record(models.EventCallOutcome, snap, string(snap.LastStatus))
}

func (s *Session) record(eventType string, snap Snapshot, status string) {
	if s.poller.journal == nil {
		return
	}
	now := s.poller.clock.Now()
	ev := models.NewDispatchEvent(eventType, now)
	ev.OrderID = s.orderID
	ev.VendorID = s.vendor.ID
	ev.Status = status
	ev.Outcome = string(snap.Outcome)
	ev.ElapsedSeconds = int64(now.Sub(s.started) / time.Second)
	if snap.Outcome.IsTerminal() {
		ev.Message = snap.Message
	}
	s.poller.journal.Record(ev)
}

func (s *Session) saveStatus(status models.OrderStatus) {
	if s.poller.orders == nil {
		return
	}
	err := s.poller.orders.UpdateStatus(context.Background(), s.orderID, status, s.poller.clock.Now())
	if err != nil {
		s.log.WithError(err).Warn("Failed to update cached order status")
	}
}
