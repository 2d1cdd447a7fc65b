package mavlink

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/ardupilotmega"
	"github.com/sirupsen/logrus"
)

const reconnectBackoff = time.Second

// reconnectCoordinator ensures only one goroutine dials the autopilot at a
// time; everyone else waits on the same attempt to finish. This is the Go
// analogue of a tokio Notify paired with an AtomicBool swap: the first
// caller to flip isRunning false->true does the work, the rest block on a
// channel that gets closed (and replaced) when the attempt completes.
type reconnectCoordinator struct {
	mu        sync.Mutex
	isRunning bool
	done      chan struct{}
}

func newReconnectCoordinator() *reconnectCoordinator {
	return &reconnectCoordinator{done: make(chan struct{})}
}

// run executes fn exclusively; concurrent callers block until the winner's
// fn returns instead of racing independent reconnect attempts.
func (c *reconnectCoordinator) run(fn func()) {
	c.mu.Lock()
	if c.isRunning {
		wait := c.done
		c.mu.Unlock()
		<-wait
		return
	}
	c.isRunning = true
	c.mu.Unlock()

	fn()

	c.mu.Lock()
	close(c.done)
	c.done = make(chan struct{})
	c.isRunning = false
	c.mu.Unlock()
}

// Connection is a reconnecting wrapper around a gomavlib Node. Dial
// failures and write/read errors trigger an automatic, single-flight
// reconnect with a fixed one-second backoff between attempts, matching the
// upstream autopilot bridge's own connection-recovery discipline.
type Connection struct {
	address     string
	dialerConf  gomavlib.NodeConf
	mu          sync.RWMutex
	node        *gomavlib.Node
	coordinator *reconnectCoordinator
	closed      atomic.Bool
	bus         *Bus
	log         *logrus.Entry
}

// NewConnection blocks, retrying once per second, until the first dial to
// address succeeds. address is a gomavlib-style endpoint string such as
// "tcp://127.0.0.1:5760" or "udp://127.0.0.1:14550"; endpointConfFor decides
// the transport endpoint kind.
func NewConnection(ctx context.Context, address string, systemID, componentID uint8, log *logrus.Entry) (*Connection, error) {
	conf, err := endpointConfFor(address)
	if err != nil {
		return nil, err
	}

	conf.Dialect = ardupilotmega.Dialect
	conf.OutVersion = gomavlib.V2
	conf.OutSystemID = systemID
	conf.OutComponentID = componentID

	c := &Connection{
		address:     address,
		dialerConf:  conf,
		coordinator: newReconnectCoordinator(),
		bus:         NewBus(log),
		log:         log,
	}

	node := c.dial(ctx)
	if node == nil {
		return nil, ctx.Err()
	}
	c.node = node

	go c.pump()

	return c, nil
}

// dial retries forever (until ctx is cancelled) with a one-second backoff,
// mirroring Connection::connect in the upstream bridge.
func (c *Connection) dial(ctx context.Context) *gomavlib.Node {
	for {
		if ctx.Err() != nil {
			return nil
		}

		c.log.Debug("connecting...")
		node, err := gomavlib.NewNode(c.dialerConf)
		if err == nil {
			c.log.Info("successfully connected")
			return node
		}

		c.log.Errorf("failed to connect, trying again in one second: %v", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectBackoff):
		}
	}
}

// pump drains the node's event stream onto the Bus until the connection is
// closed, transparently reconnecting on I/O failure.
func (c *Connection) pump() {
	for {
		if c.closed.Load() {
			return
		}

		c.mu.RLock()
		node := c.node
		c.mu.RUnlock()

		for evt := range node.Events() {
			frm, ok := evt.(*gomavlib.EventFrame)
			if !ok {
				continue
			}
			c.bus.Publish(Frame{
				Direction:   Received,
				SystemID:    frm.SystemID(),
				ComponentID: frm.ComponentID(),
				Message:     frm.Message(),
			})
		}

		if c.closed.Load() {
			return
		}

		c.log.Error("event stream closed, reconnecting")
		c.reconnect(context.Background())
	}
}

func (c *Connection) reconnect(ctx context.Context) {
	c.coordinator.run(func() {
		c.mu.RLock()
		old := c.node
		c.mu.RUnlock()
		if old != nil {
			old.Close()
		}

		node := c.dial(ctx)
		if node == nil {
			return
		}

		c.mu.Lock()
		c.node = node
		c.mu.Unlock()
	})
}

// Send writes msg, retrying through a reconnect whenever the underlying
// write fails, until ctx is done.
func (c *Connection) Send(ctx context.Context, msg ardupilotmega.Message) error {
	for {
		c.mu.RLock()
		node := c.node
		c.mu.RUnlock()

		err := node.WriteMessageAll(msg)
		if err == nil {
			c.bus.Publish(Frame{Direction: ToBeSent, Message: msg})
			return nil
		}

		c.log.Errorf("failed sending message: %v", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		c.reconnect(ctx)
	}
}

// Subscribe returns a new inbound frame subscription.
func (c *Connection) Subscribe() *Subscription { return c.bus.Subscribe() }

// Close tears the connection down; the node event pump exits on its own
// once it observes the node closed.
func (c *Connection) Close() error {
	c.closed.Store(true)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.node != nil {
		c.node.Close()
	}
	return nil
}
