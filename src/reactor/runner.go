package reactor

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/queue"
	"github.com/shivlim/casper-node/src/rng"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// Name tells runners apart in logs and metrics.
	Name string

	// Seed makes the node rng reproducible. A random seed is drawn when nil.
	Seed *uint64

	// Weights overrides queue.DefaultWeights.
	Weights map[queue.Kind]int

	Registry prometheus.Registerer
	Logger   *logrus.Entry
}

// Runner drives a reactor: it owns the event queue, the rng and every
// in-flight effect.
type Runner[Ev any, R Reactor[Ev]] struct {
	scheduler *queue.Scheduler[Ev]
	handle    effect.EventQueueHandle[Ev]
	builder   effect.Builder
	reactor   R
	rng       rng.NodeRng

	// ctx bounds the lifetime of effects. Shutdown cancels it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	fatalOnce sync.Once
	fatalErr  error
	fatalCh   chan struct{}

	dispatched *atomic.Uint64
	inFlight   *atomic.Int64
	shutdown   *atomic.Bool

	metrics *runnerMetrics
	logger  *logrus.Entry
}

// NewRunner builds the queue, handle and rng, constructs the reactor with
// them and starts the reactor's initial effects.
func NewRunner[Ev any, R Reactor[Ev]](conf RunnerConfig, ctor Constructor[Ev, R]) (*Runner[Ev, R], error) {
	weights := conf.Weights
	if weights == nil {
		weights = queue.DefaultWeights
	}
	logger := conf.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	logger = logger.WithField("reactor", conf.Name)

	metrics, err := newRunnerMetrics(conf.Name, conf.Registry)
	if err != nil {
		return nil, err
	}

	var nodeRng rng.NodeRng
	if conf.Seed != nil {
		nodeRng = rng.New(*conf.Seed)
	} else {
		nodeRng = rng.NewRandom()
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner[Ev, R]{
		scheduler:  queue.NewScheduler[Ev](weights),
		rng:        nodeRng,
		ctx:        ctx,
		cancel:     cancel,
		fatalCh:    make(chan struct{}),
		dispatched: atomic.NewUint64(0),
		inFlight:   atomic.NewInt64(0),
		shutdown:   atomic.NewBool(false),
		metrics:    metrics,
		logger:     logger,
	}
	r.handle = effect.NewEventQueueHandle(r.scheduler, r.raiseFatal)
	r.builder = effect.NewBuilder(r.handle)

	reactor, initial, err := ctor(r.handle, r.rng)
	if err != nil {
		cancel()
		return nil, err
	}
	r.reactor = reactor
	r.spawn(initial)

	logger.Debug("reactor constructed")
	return r, nil
}

// Reactor returns the driven reactor, typically to hand its components to the
// next phase once it has stopped.
func (r *Runner[Ev, R]) Reactor() R {
	return r.reactor
}

// Handle is the queue handle shared with the reactor.
func (r *Runner[Ev, R]) Handle() effect.EventQueueHandle[Ev] {
	return r.handle
}

// Builder is the effect builder passed to every dispatch.
func (r *Runner[Ev, R]) Builder() effect.Builder {
	return r.builder
}

// Dispatched is the number of events dispatched so far.
func (r *Runner[Ev, R]) Dispatched() uint64 {
	return r.dispatched.Load()
}

// InFlight is the number of effects still running.
func (r *Runner[Ev, R]) InFlight() int64 {
	return r.inFlight.Load()
}

// FatalError returns the error escalated through Builder.Fatal, if any.
func (r *Runner[Ev, R]) FatalError() error {
	select {
	case <-r.fatalCh:
		return r.fatalErr
	default:
		return nil
	}
}

func (r *Runner[Ev, R]) raiseFatal(err error) {
	r.fatalOnce.Do(func() {
		r.fatalErr = err
		close(r.fatalCh)
		r.logger.WithError(err).Error("fatal error raised")
	})
}

// Crank waits for the next event and dispatches it. It returns ctx's error if
// ctx is done first.
func (r *Runner[Ev, R]) Crank(ctx context.Context) error {
	ev, kind, err := r.scheduler.Pop(ctx)
	if err != nil {
		return err
	}
	r.dispatch(ev, kind)
	return nil
}

// TryCrank dispatches the next event if one is queued. It reports whether an
// event was dispatched.
func (r *Runner[Ev, R]) TryCrank() bool {
	ev, kind, ok := r.scheduler.TryPop()
	if !ok {
		return false
	}
	r.dispatch(ev, kind)
	return true
}

func (r *Runner[Ev, R]) dispatch(ev Ev, kind queue.Kind) {
	start := time.Now()
	effs := r.reactor.DispatchEvent(r.builder, r.rng, ev)
	r.metrics.dispatchDuration.Observe(time.Since(start).Seconds())
	r.metrics.events.Inc()
	r.metrics.observeQueue(r.scheduler.Lens())
	r.dispatched.Inc()

	if r.logger.Logger.IsLevelEnabled(logrus.DebugLevel) {
		r.logger.WithFields(logrus.Fields{
			"kind":    kind,
			"effects": len(effs),
		}).Debugf("dispatched %v", ev)
	}

	r.spawn(effs)
}

// spawn starts every effect on its own goroutine. Events they yield go back
// onto the Regular queue.
func (r *Runner[Ev, R]) spawn(effs effect.Effects[Ev]) {
	if r.shutdown.Load() {
		return
	}
	for _, eff := range effs {
		eff := eff
		r.wg.Add(1)
		r.inFlight.Inc()
		r.metrics.effectsInFlight.Inc()
		go func() {
			defer r.wg.Done()
			defer r.metrics.effectsInFlight.Dec()
			defer r.inFlight.Dec()
			for _, ev := range eff(r.ctx) {
				r.handle.Schedule(ev, queue.Regular)
			}
		}()
	}
}

// Run cranks until the reactor stops, ctx is done or a fatal error is raised.
// It returns the fatal error, if any.
func (r *Runner[Ev, R]) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-r.fatalCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	for !r.reactor.IsStopped() {
		if err := r.FatalError(); err != nil {
			return err
		}
		if err := r.Crank(ctx); err != nil {
			break
		}
	}

	if err := r.FatalError(); err != nil {
		return err
	}
	if r.reactor.IsStopped() {
		r.logger.Info("reactor stopped")
	}
	return nil
}

// Shutdown cancels all in-flight effects and waits for them to return.
// Events they still produce are dropped.
func (r *Runner[Ev, R]) Shutdown() {
	if !r.shutdown.CompareAndSwap(false, true) {
		return
	}
	r.cancel()
	r.wg.Wait()
	r.logger.WithField("dispatched", r.dispatched.Load()).Debug("runner shut down")
}
