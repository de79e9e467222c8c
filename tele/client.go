package tele

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/beagley/hubclient/helpers"
	"github.com/beagley/hubclient/helpers/atomic_clock"
	"github.com/beagley/hubclient/log2"
	"github.com/beagley/hubclient/state"
	tele_config "github.com/beagley/hubclient/tele/config"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
)

type Phase uint32

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseConnected
	PhaseBackoffWait
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseBackoffWait:
		return "backoff-wait"
	case PhaseStopped:
		return "stopped"
	}
	return fmt.Sprintf("Phase(%d)", uint32(p))
}

type ClientOptions struct {
	Config tele_config.Config
	Dialer Dialer // nil = websocket
	Log    *log2.Log
	Store  *state.Store

	now       func() time.Time
	afterFunc func(time.Duration, func()) (stop func() bool)
}

// Vehicle hub telemetry client.
//   - NewClient() returns only configuration errors, network IO is done in background
//   - at most one connection, receive only
//   - unlimited reconnect attempts with exponential backoff until Close()
//   - transport events, watchdog ticks and reconnect timer are serialized
//     on worker goroutine, the only writer of Store
type Client struct {
	alive    *alive.Alive
	backoff  helpers.Backoff
	decoder  *Decoder
	eventch  chan event
	fresh    *atomic_clock.Clock
	opt      ClientOptions
	phase    uint32 // atomic Phase
	stat     Stat
	url      string
	watchdog *Watchdog

	// owned by worker goroutine
	gen        uint32
	connCancel context.CancelFunc
	reconnect  func() bool // stops pending reconnect timer, nil if none
}

type eventKind uint8

const (
	evOpened eventKind = iota + 1
	evClosed
	evMessage
	evReconnect
)

type event struct {
	kind eventKind
	gen  uint32 // connection attempt, stale events are dropped
	data []byte
	err  error
}

func NewClient(opt ClientOptions) (*Client, error) {
	c, err := newClient(opt)
	if err != nil {
		return nil, err
	}
	c.alive.Add(1)
	go c.worker()
	return c, nil
}

func newClient(opt ClientOptions) (*Client, error) {
	if opt.Store == nil {
		return nil, errors.NotValidf("code error tele.ClientOptions.Store=nil")
	}
	if err := opt.Config.Validate(); err != nil {
		return nil, errors.Annotate(err, "tele client")
	}
	if opt.now == nil {
		opt.now = time.Now
	}
	if opt.afterFunc == nil {
		opt.afterFunc = func(d time.Duration, f func()) func() bool { return time.AfterFunc(d, f).Stop }
	}
	opt.Log = opt.Log.Named("tele: ")
	if opt.Config.LogDebug {
		opt.Log = opt.Log.Clone(log2.LDebug)
	}
	if opt.Dialer == nil {
		opt.Dialer = NewWebsocketDialer(opt.Log.Named("ws: "), opt.Config)
	}

	c := &Client{
		alive: alive.NewAlive(),
		backoff: helpers.Backoff{
			Min: opt.Config.InitialBackoff(),
			Max: opt.Config.MaxBackoff(),
			K:   2,
		},
		eventch: make(chan event, 16),
		fresh:   atomic_clock.New(),
		opt:     opt,
		url:     opt.Config.EffectiveURL(),
	}
	c.decoder = NewDecoder(opt.Store, c.fresh, opt.Log, &c.stat)
	c.decoder.now = opt.now
	c.watchdog = NewWatchdog(opt.Store, c.fresh, opt.Config.StaleTimeout())
	return c, nil
}

// Close stops watchdog and pending reconnect, abandons current connection.
func (c *Client) Close() error {
	c.alive.Stop()
	c.alive.Wait()
	return nil
}

func (c *Client) Phase() Phase        { return Phase(atomic.LoadUint32(&c.phase)) }
func (c *Client) Stat() Stat          { return c.stat.Copy() }
func (c *Client) Store() *state.Store { return c.opt.Store }
func (c *Client) URL() string         { return c.url }

func (c *Client) setPhase(p Phase) { atomic.StoreUint32(&c.phase, uint32(p)) }

func (c *Client) worker() {
	defer c.alive.Done()
	tick := time.NewTicker(c.opt.Config.WatchdogTick())
	defer tick.Stop()
	stopch := c.alive.StopChan()

	c.watchdog.Tick(c.opt.now())
	c.start()
	for {
		select {
		case e := <-c.eventch:
			c.handle(e)

		case <-tick.C:
			c.watchdog.Tick(c.opt.now())

		case <-stopch:
			c.shutdown()
			return
		}
	}
}

func (c *Client) handle(e event) {
	if e.kind != evReconnect && e.gen != c.gen {
		c.opt.Log.Debugf("drop stale event kind=%d gen=%d current=%d", e.kind, e.gen, c.gen)
		return
	}
	switch e.kind {
	case evOpened:
		c.onOpened()

	case evClosed:
		c.onClosed(e.err)

	case evMessage:
		c.decoder.HandleMessage(e.data)

	case evReconnect:
		c.reconnect = nil
		c.start()

	default:
		panic(fmt.Sprintf("code error unknown event kind=%d", e.kind))
	}
}

// No-op while connecting or connected.
func (c *Client) start() {
	switch c.Phase() {
	case PhaseConnecting, PhaseConnected, PhaseStopped:
		return
	}
	if !c.alive.Add(1) {
		return
	}
	c.gen++
	ctx, cancel := context.WithCancel(context.Background())
	c.connCancel = cancel
	c.setPhase(PhaseConnecting)
	c.stat.Modify(func(s *Stat) { s.Dials++ })
	c.opt.Log.Debugf("connecting url=%s", c.url)
	go c.connect(ctx, c.gen)
}

func (c *Client) onOpened() {
	c.setPhase(PhaseConnected)
	c.backoff.Reset()
	now := c.opt.now()
	c.stat.Modify(func(s *Stat) {
		s.Connects++
		s.LastConnect = now
	})
	c.opt.Log.Infof("connected url=%s", c.url)
	c.opt.Store.Update(func(w *state.Writer) { w.SetConnected(true) })
}

// Transport closed, failed or connect attempt failed.
func (c *Client) onClosed(err error) {
	if c.connCancel != nil {
		c.connCancel()
		c.connCancel = nil
	}
	wasConnected := c.Phase() == PhaseConnected
	c.setPhase(PhaseBackoffWait)
	now := c.opt.now()
	c.stat.Modify(func(s *Stat) {
		if wasConnected {
			s.Disconnects++
			s.LastDisconnect = now
		}
		if err != nil {
			s.LastError = err.Error()
		}
	})
	if wasConnected {
		c.opt.Log.Infof("disconnected url=%s err=%v", c.url, err)
	} else {
		c.opt.Log.Infof("connect url=%s err=%v", c.url, err)
	}
	// linkStale without waiting for next watchdog tick
	c.opt.Store.Update(func(w *state.Writer) {
		w.SetConnected(false)
		w.SetLinkStale(true)
	})
	c.scheduleReconnect()
}

// No-op if reconnect is already pending.
func (c *Client) scheduleReconnect() {
	if c.reconnect != nil {
		return
	}
	delay := c.backoff.Next()
	c.opt.Log.Debugf("reconnect in %v", delay)
	c.reconnect = c.opt.afterFunc(delay, func() {
		c.post(event{kind: evReconnect})
	})
}

func (c *Client) shutdown() {
	if c.reconnect != nil {
		c.reconnect()
		c.reconnect = nil
	}
	if c.connCancel != nil {
		c.connCancel()
		c.connCancel = nil
	}
	c.setPhase(PhaseStopped)
	c.opt.Store.Update(func(w *state.Writer) { w.SetConnected(false) })
	st := c.stat.Copy()
	c.opt.Log.Debugf("stopped %s", st.String())
}

// Returns false if client is closing.
func (c *Client) post(e event) bool {
	select {
	case c.eventch <- e:
		return true
	case <-c.alive.StopChan():
		return false
	}
}

// dial, then forward messages until error or ctx is done
func (c *Client) connect(ctx context.Context, gen uint32) {
	defer c.alive.Done()

	conn, err := c.opt.Dialer.Dial(ctx, c.url)
	if err != nil {
		c.post(event{kind: evClosed, gen: gen, err: errors.Annotatef(err, "connect: dial")})
		return
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		_ = conn.Close()
	}()
	if !c.post(event{kind: evOpened, gen: gen}) {
		return
	}

	for {
		b, err := conn.Receive()
		if err != nil {
			c.post(event{kind: evClosed, gen: gen, err: err})
			return
		}
		if !c.post(event{kind: evMessage, gen: gen, data: b}) {
			return
		}
	}
}
