package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/harborstack/keel/logger"
)

// State is the coordinator's lifecycle state.
type State string

const (
	// StateIdle means the coordinator has been created but not armed.
	StateIdle State = "IDLE"
	// StateArmed means the listener is live and signals are watched.
	StateArmed State = "ARMED"
	// StateDraining means a termination event fired and in-flight
	// requests are being allowed to complete.
	StateDraining State = "DRAINING"
	// StateClosed is the terminal state after graceful shutdown.
	StateClosed State = "CLOSED"
	// StateForceKilled is the terminal state when the watchdog fired
	// before graceful close completed.
	StateForceKilled State = "FORCE_KILLED"
)

const (
	// defaultDrainDelay lets in-flight requests complete before the
	// listener closes.
	defaultDrainDelay = 1 * time.Second
	// defaultWatchdog matches the typical orchestration-platform grace
	// period.
	defaultWatchdog = 30 * time.Second
)

// Coordinator owns process termination. It is armed once the listener
// accepts connections, fires exactly one drain sequence per process no
// matter how many termination events arrive, and guarantees forced exit if
// graceful shutdown exceeds the watchdog deadline.
type Coordinator struct {
	drainDelay time.Duration
	watchdog   time.Duration
	exit       func(code int)
	log        *logger.Logger

	mu         sync.Mutex
	state      State
	closeFn    func(ctx context.Context) error
	deregister func(ctx context.Context) error

	once    sync.Once
	done    chan struct{}
	sigStop chan struct{}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDrainDelay overrides the drain grace window.
func WithDrainDelay(d time.Duration) Option {
	return func(c *Coordinator) { c.drainDelay = d }
}

// WithWatchdog overrides the forced-exit deadline.
func WithWatchdog(d time.Duration) Option {
	return func(c *Coordinator) { c.watchdog = d }
}

// WithExitFunc overrides the process-exit path. Tests use this; production
// code keeps os.Exit.
func WithExitFunc(fn func(code int)) Option {
	return func(c *Coordinator) { c.exit = fn }
}

// New creates an unarmed coordinator.
func New(log *logger.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		drainDelay: defaultDrainDelay,
		watchdog:   defaultWatchdog,
		exit:       os.Exit,
		log:        log.WithComponent("shutdown"),
		state:      StateIdle,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetDeregister installs the deregistration action without arming the
// coordinator. Called as soon as the registry connection exists, so a
// startup failure between registration and listener bind still deregisters
// the instance when the termination event fires.
func (c *Coordinator) SetDeregister(deregister func(ctx context.Context) error) {
	c.mu.Lock()
	c.deregister = deregister
	c.mu.Unlock()
}

// Arm installs the close and deregister actions and begins watching for
// termination signals. Called once the listener is accepting connections.
func (c *Coordinator) Arm(closeFn, deregister func(ctx context.Context) error) {
	c.mu.Lock()
	c.closeFn = closeFn
	c.deregister = deregister
	if c.state == StateIdle {
		c.state = StateArmed
	}
	alreadyWatching := c.sigStop != nil
	if !alreadyWatching {
		c.sigStop = make(chan struct{})
	}
	stop := c.sigStop
	c.mu.Unlock()

	if alreadyWatching {
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			c.log.Info("Received shutdown signal", logger.Fields("signal", sig.String()))
			c.Trigger()
		case <-stop:
		}
	}()
}

// Trigger raises the process-wide termination event. The first call starts
// the drain sequence and the watchdog; later calls are no-ops.
func (c *Coordinator) Trigger() {
	c.once.Do(func() {
		c.mu.Lock()
		c.state = StateDraining
		c.mu.Unlock()

		go c.runWatchdog()
		go c.drain()
	})
}

// Done is closed once graceful shutdown reaches CLOSED.
func (c *Coordinator) Done() <-chan struct{} { return c.done }

// State returns the current coordinator state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// drain waits the grace window, closes the listener, and deregisters.
func (c *Coordinator) drain() {
	c.log.Info("Draining in-flight requests", logger.Fields("delay", c.drainDelay.String()))
	time.Sleep(c.drainDelay)

	ctx, cancel := context.WithTimeout(context.Background(), c.watchdog)
	defer cancel()

	c.mu.Lock()
	closeFn := c.closeFn
	deregister := c.deregister
	c.mu.Unlock()

	if closeFn != nil {
		if err := closeFn(ctx); err != nil {
			c.log.Error("Listener close failed", logger.Fields(logger.FieldError, err.Error()))
		}
		c.log.Info("Listener closed, deregistering from discovery")
	} else {
		c.log.Info("No listener armed, deregistering from discovery")
	}

	if deregister != nil {
		if err := deregister(ctx); err != nil {
			c.log.Error("Deregistration failed", logger.Fields(logger.FieldError, err.Error()))
		}
	}

	c.mu.Lock()
	if c.state == StateDraining {
		c.state = StateClosed
	}
	reached := c.state == StateClosed
	c.mu.Unlock()

	if reached {
		c.log.Info("Graceful shutdown complete")
		close(c.done)
	}
}

// runWatchdog forcibly terminates the process if graceful close has not
// completed when the deadline fires, regardless of drain progress.
func (c *Coordinator) runWatchdog() {
	timer := time.NewTimer(c.watchdog)
	defer timer.Stop()

	select {
	case <-c.done:
	case <-timer.C:
		c.mu.Lock()
		c.state = StateForceKilled
		c.mu.Unlock()

		c.log.Error("Graceful shutdown deadline exceeded, forcing exit", logger.Fields(
			"deadline", c.watchdog.String(),
		))
		c.exit(1)
	}
}

// StopWatching releases the signal watcher without triggering shutdown.
// Used by tests and by hosts that manage signals themselves.
func (c *Coordinator) StopWatching() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sigStop != nil {
		close(c.sigStop)
		c.sigStop = nil
	}
}
