// Package optimistic applies user-triggered field changes to a local
// collection before the server confirms them, then reconciles: the server
// value is merged on success and the collection is refetched on failure.
package optimistic

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/atvirokodosprendimai/storefront/internal/client/result"
)

// State of one mutation. Idle -> Applied -> Confirmed | RolledBack, or Rejected
// when the mutation never left the client.
type State int

const (
	Idle State = iota
	Applied
	Confirmed
	RolledBack
	Rejected
)

func (s State) String() string {
	switch s {
	case Applied:
		return "applied"
	case Confirmed:
		return "confirmed"
	case RolledBack:
		return "rolled_back"
	case Rejected:
		return "rejected"
	default:
		return "idle"
	}
}

// Fetcher loads the authoritative collection from the server.
type Fetcher[T Keyed] func(ctx context.Context) ([]T, error)

// Reply is a successful server answer. Merge, when set, writes the
// authoritative field value over the optimistic one.
type Reply[T Keyed] struct {
	Merge   func(T) T
	Message string
}

// Mutation describes one field change against one record. Exactly one of
// Change or Remove is expected.
type Mutation[T Keyed] struct {
	RecordID string
	Field    string
	// Change computes the new record from the current one. It must be pure.
	Change func(T) T
	// Remove drops the record optimistically instead of changing a field.
	Remove bool
	// Guard runs before anything is applied; an error rejects the mutation.
	// A *result.Error's Message becomes the notification, otherwise the
	// error text does.
	Guard func(T) error
	// Request performs the network call with the optimistic record.
	Request        func(ctx context.Context, optimistic T) (Reply[T], error)
	SuccessMessage string
}

// Outcome is the settled result of a mutation.
type Outcome struct {
	RecordID string
	State    State
	Kind     result.Kind
	Message  string
	Err      error
}

var ErrUnknownRecord = errors.New("record is not in the collection")

type Option func(*options)

type options struct {
	serialize      bool
	onUnauthorized func()
}

// WithSerializedRecords runs mutations on the same record one after another.
// Without it concurrent mutations race and the last response wins.
func WithSerializedRecords() Option {
	return func(o *options) { o.serialize = true }
}

// WithOnUnauthorized is called once per mutation that fails as Unauthorized.
func WithOnUnauthorized(fn func()) Option {
	return func(o *options) { o.onUnauthorized = fn }
}

type Controller[T Keyed] struct {
	coll   *Collection[T]
	fetch  Fetcher[T]
	notify Notifier
	opts   options
	closed atomic.Bool

	locksMu sync.Mutex
	locks   map[string]*semaphore.Weighted
}

func NewController[T Keyed](fetch Fetcher[T], notifier Notifier, opts ...Option) *Controller[T] {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	c := &Controller[T]{
		coll:   NewCollection[T](),
		fetch:  fetch,
		notify: notifier,
		locks:  map[string]*semaphore.Weighted{},
	}
	for _, opt := range opts {
		opt(&c.opts)
	}
	return c
}

func (c *Controller[T]) Collection() *Collection[T] {
	return c.coll
}

// Refresh replaces the collection with a fresh fetch.
func (c *Controller[T]) Refresh(ctx context.Context) error {
	items, err := c.fetch(ctx)
	if err != nil {
		if result.KindOf(err) == result.Unauthorized && c.opts.onUnauthorized != nil {
			c.opts.onUnauthorized()
		}
		return err
	}
	if c.closed.Load() {
		return nil
	}
	c.coll.Replace(items)
	return nil
}

// Close discards the view. Mutations still in flight complete without
// touching the collection or notifying.
func (c *Controller[T]) Close() {
	c.closed.Store(true)
}

// Apply runs the mutation to completion.
func (c *Controller[T]) Apply(ctx context.Context, m Mutation[T]) Outcome {
	if c.opts.serialize {
		release, err := c.acquire(ctx, m.RecordID)
		if err != nil {
			return c.reject(m, result.NetworkUnreachable, result.MessageOf(err), err)
		}
		defer release()
	}
	a, out, ok := c.begin(m)
	if !ok {
		return out
	}
	return c.complete(ctx, m, a)
}

// Go applies the mutation and returns while the request is in flight. Without
// serialization the optimistic value is visible when Go returns; with it, the
// mutation waits for earlier ones on the same record first.
func (c *Controller[T]) Go(ctx context.Context, m Mutation[T]) *Pending[T] {
	p := &Pending[T]{done: make(chan struct{})}
	if c.opts.serialize {
		go func() { p.settle(c.Apply(ctx, m)) }()
		return p
	}
	a, out, ok := c.begin(m)
	if !ok {
		p.settle(out)
		return p
	}
	go func() { p.settle(c.complete(ctx, m, a)) }()
	return p
}

// applied remembers what is needed to undo one optimistic change.
type applied[T Keyed] struct {
	before T
	index  int
	value  T
}

func (c *Controller[T]) begin(m Mutation[T]) (applied[T], Outcome, bool) {
	current, ok := c.coll.Get(m.RecordID)
	if !ok {
		return applied[T]{}, c.reject(m, result.Rejected, "Record no longer exists. Refresh and try again.", ErrUnknownRecord), false
	}
	if m.Guard != nil {
		if err := m.Guard(current); err != nil {
			return applied[T]{}, c.reject(m, result.Rejected, guardMessage(err), err), false
		}
	}

	if m.Remove {
		before, index, ok := c.coll.remove(m.RecordID)
		if !ok {
			return applied[T]{}, c.reject(m, result.Rejected, "Record no longer exists. Refresh and try again.", ErrUnknownRecord), false
		}
		return applied[T]{before: before, index: index, value: before}, Outcome{}, true
	}

	var before T
	value, ok := c.coll.update(m.RecordID, func(old T) T {
		before = old
		return m.Change(old)
	})
	if !ok {
		return applied[T]{}, c.reject(m, result.Rejected, "Record no longer exists. Refresh and try again.", ErrUnknownRecord), false
	}
	return applied[T]{before: before, index: -1, value: value}, Outcome{}, true
}

func (c *Controller[T]) complete(ctx context.Context, m Mutation[T], a applied[T]) Outcome {
	reply, err := m.Request(ctx, a.value)
	if err == nil {
		out := Outcome{RecordID: m.RecordID, State: Confirmed, Message: firstNonEmpty(reply.Message, m.SuccessMessage)}
		if c.closed.Load() {
			return out
		}
		c.confirm(m, a, reply)
		c.notify.Notify(Notification{Level: Success, RecordID: m.RecordID, Field: m.Field, Message: out.Message})
		return out
	}

	out := Outcome{
		RecordID: m.RecordID,
		State:    RolledBack,
		Kind:     result.KindOf(err),
		Message:  result.MessageOf(err),
		Err:      err,
	}
	if out.Kind == result.Unauthorized && c.opts.onUnauthorized != nil {
		c.opts.onUnauthorized()
	}
	if c.closed.Load() {
		return out
	}

	items, fetchErr := c.fetch(ctx)
	switch {
	case c.closed.Load():
		return out
	case fetchErr == nil:
		c.coll.Replace(items)
	default:
		c.coll.restore(a.before, a.index)
	}
	c.notify.Notify(Notification{Level: Failure, Kind: out.Kind, RecordID: m.RecordID, Field: m.Field, Message: out.Message})
	return out
}

// confirm re-asserts a confirmed mutation. A refetch triggered by another
// mutation's failure may have replaced the collection while this request was
// in flight, bringing back a deleted record or an older field value.
func (c *Controller[T]) confirm(m Mutation[T], a applied[T], reply Reply[T]) {
	if m.Remove {
		c.coll.remove(m.RecordID)
		return
	}
	c.coll.update(m.RecordID, func(T) T {
		if reply.Merge != nil {
			return reply.Merge(a.value)
		}
		return a.value
	})
}

func (c *Controller[T]) reject(m Mutation[T], kind result.Kind, message string, err error) Outcome {
	out := Outcome{RecordID: m.RecordID, State: Rejected, Kind: kind, Message: message, Err: err}
	if !c.closed.Load() {
		c.notify.Notify(Notification{Level: Failure, Kind: kind, RecordID: m.RecordID, Field: m.Field, Message: message})
	}
	return out
}

func (c *Controller[T]) acquire(ctx context.Context, id string) (func(), error) {
	c.locksMu.Lock()
	sem, ok := c.locks[id]
	if !ok {
		sem = semaphore.NewWeighted(1)
		c.locks[id] = sem
	}
	c.locksMu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}

func guardMessage(err error) string {
	var e *result.Error
	if errors.As(err, &e) {
		return result.MessageOf(err)
	}
	return err.Error()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Pending is a mutation whose request may still be in flight.
type Pending[T Keyed] struct {
	done    chan struct{}
	outcome Outcome
}

func (p *Pending[T]) settle(out Outcome) {
	p.outcome = out
	close(p.done)
}

// Wait blocks until the mutation settles.
func (p *Pending[T]) Wait() Outcome {
	<-p.done
	return p.outcome
}
