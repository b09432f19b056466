package commit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chazu/stagehand/pkg/persist"
	"github.com/chazu/stagehand/pkg/placement"
	"github.com/maniartech/signals"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the number of concurrent persistence calls.
const DefaultWorkers = 4

// ErrClosed is reported for work submitted after Close.
var ErrClosed = errors.New("dispatcher closed")

// Op names a persistence call.
type Op string

const (
	OpUpdate    Op = "update"
	OpRemove    Op = "remove"
	OpDuplicate Op = "duplicate"
	OpLock      Op = "lock"
)

// Result is the outcome of one persistence call. Exactly one of the payload
// fields is set on success, according to Op.
type Result struct {
	Op      Op
	ID      placement.ID
	Updated *placement.Placement
	Removed []placement.ID
	Created []placement.Placement
	Err     error
}

// Failure is a persistence error surfaced to the application. Local state is
// never rolled back and the call is never retried.
type Failure struct {
	Op  Op
	ID  placement.ID
	Err error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Op, f.ID, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

type job struct {
	op    Op
	id    placement.ID
	patch persist.Patch
	scope persist.Scope
	lock  bool
}

// Dispatcher runs persistence calls on a worker pool. Submissions never
// block and are never dropped; results are collected with Drain from the
// interaction loop.
type Dispatcher struct {
	store   persist.Store
	ctx     context.Context
	cancel  context.CancelFunc
	g       *errgroup.Group
	pending sync.WaitGroup

	mu      sync.Mutex
	ready   *sync.Cond // signalled when jobs grows or closed is set
	jobs    []job
	results []Result
	closed  bool

	// Failed is emitted from a worker goroutine for every failed call.
	Failed signals.Signal[Failure]
}

// NewDispatcher starts workers calling store. workers <= 0 selects
// DefaultWorkers.
func NewDispatcher(ctx context.Context, store persist.Store, workers int) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	d := &Dispatcher{
		store:  store,
		ctx:    gctx,
		cancel: cancel,
		g:      g,
		Failed: signals.NewSync[Failure](),
	}
	d.ready = sync.NewCond(&d.mu)
	for range workers {
		g.Go(d.work)
	}
	return d
}

// Update sends a finalized patch.
func (d *Dispatcher) Update(id placement.ID, patch persist.Patch) {
	d.submit(job{op: OpUpdate, id: id, patch: patch})
}

// Remove deletes id with the given scope.
func (d *Dispatcher) Remove(id placement.ID, scope persist.Scope) {
	d.submit(job{op: OpRemove, id: id, scope: scope})
}

// Duplicate copies id.
func (d *Dispatcher) Duplicate(id placement.ID) {
	d.submit(job{op: OpDuplicate, id: id})
}

// SetLocked sets the lock flag of id.
func (d *Dispatcher) SetLocked(id placement.ID, locked bool) {
	d.submit(job{op: OpLock, id: id, lock: locked})
}

// Drain returns every result that has completed so far without waiting.
func (d *Dispatcher) Drain() []Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.results
	d.results = nil
	return out
}

// Wait blocks until every submitted call has finished and its result is
// ready to Drain.
func (d *Dispatcher) Wait() {
	d.pending.Wait()
}

// Close stops accepting work, lets queued calls finish and stops the workers.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.ready.Broadcast()
	d.mu.Unlock()
	err := d.g.Wait()
	d.cancel()
	return err
}

func (d *Dispatcher) submit(j job) {
	d.mu.Lock()
	if d.closed {
		r := Result{Op: j.op, ID: j.id, Err: ErrClosed}
		d.results = append(d.results, r)
		d.mu.Unlock()
		d.report(r)
		return
	}
	d.pending.Add(1)
	d.jobs = append(d.jobs, j)
	d.ready.Signal()
	d.mu.Unlock()
}

// next blocks until a job is queued and returns it. ok is false once the
// dispatcher is closed and the queue is empty.
func (d *Dispatcher) next() (j job, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for len(d.jobs) == 0 && !d.closed {
		d.ready.Wait()
	}
	if len(d.jobs) == 0 {
		return job{}, false
	}
	j = d.jobs[0]
	d.jobs[0] = job{}
	d.jobs = d.jobs[1:]
	return j, true
}

func (d *Dispatcher) work() error {
	for {
		j, ok := d.next()
		if !ok {
			return nil
		}
		r := d.run(j)
		d.report(r)
		d.mu.Lock()
		d.results = append(d.results, r)
		d.mu.Unlock()
		d.pending.Done()
	}
}

func (d *Dispatcher) run(j job) Result {
	r := Result{Op: j.op, ID: j.id}
	switch j.op {
	case OpUpdate:
		r.Updated, r.Err = d.store.UpdatePlacement(d.ctx, j.id, j.patch)
	case OpRemove:
		r.Removed, r.Err = d.store.RemovePlacement(d.ctx, j.id, j.scope)
	case OpDuplicate:
		r.Created, r.Err = d.store.DuplicatePlacement(d.ctx, j.id)
	case OpLock:
		r.Updated, r.Err = d.store.SetLocked(d.ctx, j.id, j.lock)
	default:
		r.Err = fmt.Errorf("unknown op %q", j.op)
	}
	return r
}

func (d *Dispatcher) report(r Result) {
	if r.Err == nil {
		return
	}
	slog.Warn("Persistence call failed", "op", r.Op, "id", r.ID, "error", r.Err)
	d.Failed.Emit(d.ctx, Failure{Op: r.Op, ID: r.ID, Err: r.Err})
}
