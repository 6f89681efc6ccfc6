// File: trader/trader.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Trader is the order-entry facade (§4.6): it owns the buffer pool,
// ring dispatcher, transport, session, and codec provider, and wires
// them into the operations an application calls: Open, Close, Suspend,
// Send, CreateOrder, CreateOrderCancelRequest, OnApplication, OnError,
// Subscribe. Generalized from client/facade.go's Client: lifecycle
// goroutines stopped through stop channels, Close waiting on state
// rather than cancelling a context.Context directly.

package trader

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/momentics/fixp-ws-client/adapters"
	"github.com/momentics/fixp-ws-client/api"
	"github.com/momentics/fixp-ws-client/codec"
	"github.com/momentics/fixp-ws-client/control"
	"github.com/momentics/fixp-ws-client/internal/concurrency"
	"github.com/momentics/fixp-ws-client/internal/logging"
	"github.com/momentics/fixp-ws-client/pool"
	"github.com/momentics/fixp-ws-client/session"
	"github.com/momentics/fixp-ws-client/transport"
)

// OnApplication is the application consumer callback: it receives the
// transport source, the decoded response view, and its sequence
// number for every in-order inbound application message (§8, scenario
// 1's "(source, message, seqNo)" tuple). msg is only valid for the
// duration of the call (§3).
type OnApplication func(source string, msg api.Message, seqNo uint64)

// ErrorListener receives TransportError/MessageError values the
// session and transport cannot act on themselves (§7).
type ErrorListener func(err error)

// Config holds the parameters needed to construct a Trader.
type Config struct {
	// Addr is the WebSocket URI, e.g. wss://localhost:443/trade.
	Addr string

	// Encoding selects the codec provider by name (§6); "" defaults
	// to "SBE".
	Encoding string

	// HeartbeatInterval is negotiated at NEGOTIATE (§3); 0 defaults
	// to 30s.
	HeartbeatInterval time.Duration

	// SendTimeout bounds Send's wait for ESTABLISHED; 0 defaults to 5s.
	SendTimeout time.Duration

	// CloseTimeout bounds Close's wait for FINALIZED and Suspend's
	// wait for NOT_ESTABLISHED; 0 defaults to 5s.
	CloseTimeout time.Duration

	// ReadBufSize sizes the transport's pooled read buffer; 0
	// defaults to 64KiB.
	ReadBufSize int

	// RingCapacity sizes the inbound dispatcher ring (rounded up to a
	// power of two); 0 defaults to 1024.
	RingCapacity int

	// ReadTimeout/WriteTimeout bound the transport's per-call I/O
	// deadlines; 0 disables the deadline.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// CPUPin, if > 0, pins the dispatcher worker's OS thread to that
	// logical CPU (§9's affinity note). Zero or negative disables
	// pinning, so CPU 0 cannot be selected.
	CPUPin int

	// MetricsAddr, if non-empty, serves Prometheus metrics at
	// /metrics on this address for the life of the Trader.
	MetricsAddr string

	// Dial constructs and opens the transport for one Open/reconnect
	// cycle. nil defaults to a real transport.Client over wss (§4.4).
	// Tests substitute a fake.Transport-backed dialer here to drive
	// the session FSM without a live exchange (§8's test-tooling
	// note).
	Dial func(cfg Config, disp *concurrency.Dispatcher, bp api.BufferPool, onClose func()) (api.Transport, error)
}

func (c Config) withDefaults() Config {
	if c.Encoding == "" {
		c.Encoding = "SBE"
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 5 * time.Second
	}
	if c.CloseTimeout <= 0 {
		c.CloseTimeout = 5 * time.Second
	}
	if c.ReadBufSize <= 0 {
		c.ReadBufSize = 64 * 1024
	}
	if c.RingCapacity <= 0 {
		c.RingCapacity = 1024
	}
	if c.CPUPin == 0 {
		c.CPUPin = -1
	}
	if c.Dial == nil {
		c.Dial = defaultDial
	}
	return c
}

// defaultDial constructs a real wss transport.Client.
func defaultDial(cfg Config, disp *concurrency.Dispatcher, bp api.BufferPool, onClose func()) (api.Transport, error) {
	tcfg := transport.Config{
		Addr:         cfg.Addr,
		ReadBufSize:  cfg.ReadBufSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		OnClose:      onClose,
	}
	tr, err := transport.NewClient(tcfg, disp, bp)
	if err != nil {
		return nil, err
	}
	if err := tr.Open(); err != nil {
		return nil, err
	}
	return tr, nil
}

// Trader ties the buffer pool, dispatcher, transport, session, and
// codec provider into the blocking request/response API an
// application calls (§4.6). One Trader owns exactly one session and
// at most one live transport at a time (§1's 1:1 non-goal).
type Trader struct {
	cfg      Config
	id       uuid.UUID
	provider api.Provider
	ctrl     *adapters.ControlAdapter
	log      *logging.Logger

	mu          sync.Mutex
	pool        api.BufferPool
	disp        *concurrency.Dispatcher
	sess        *session.Session
	transport   api.Transport
	source      string
	reqFactory  api.RequestFactory
	respFactory api.ResponseFactory
	consumer    OnApplication
	errListener ErrorListener
	metricsStop chan struct{}
	lastDblFree int64
	closed      bool
}

// New constructs a Trader bound to cfg's codec provider. The session
// identity is generated once here and reused across every subsequent
// Open (§4.6's "open is idempotent with respect to session identity").
func New(cfg Config) (*Trader, error) {
	cfg = cfg.withDefaults()
	provider, err := codec.Lookup(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	return &Trader{
		cfg:      cfg,
		id:       uuid.New(),
		provider: provider,
		ctrl:     adapters.NewControlAdapter(),
		log:      logging.New("trader"),
	}, nil
}

// ID returns the trader's session identity.
func (t *Trader) ID() uuid.UUID { return t.id }

// Control exposes the config/metrics/debug surface (§6).
func (t *Trader) Control() *adapters.ControlAdapter { return t.ctrl }

// State reports the current session state, or NOT_NEGOTIATED if Open
// has never been called.
func (t *Trader) State() api.SessionState {
	t.mu.Lock()
	sess := t.sess
	t.mu.Unlock()
	if sess == nil {
		return api.NotNegotiated
	}
	return sess.State()
}

// OnApplication registers the callback invoked for each in-order
// inbound application message.
func (t *Trader) OnApplication(cb OnApplication) {
	t.mu.Lock()
	t.consumer = cb
	t.mu.Unlock()
}

// OnError registers the trader's error sink (§7). If unset, errors are
// logged and otherwise swallowed.
func (t *Trader) OnError(cb ErrorListener) {
	t.mu.Lock()
	t.errListener = cb
	t.mu.Unlock()
}

// Subscribe attaches sub to the session's demand-pull event stream
// (§4.5, §6). A no-op before the first Open.
func (t *Trader) Subscribe(sub api.EventSubscriber) {
	t.mu.Lock()
	sess := t.sess
	t.mu.Unlock()
	if sess != nil {
		sess.Subscribe(sub)
	}
}

// frameRouter adapts a dispatched inbound frame to the currently-bound
// Session, implementing concurrency.FrameHandler so the dispatcher
// never imports session directly.
type frameRouter struct {
	sess *session.Session
}

func (r *frameRouter) HandleFrame(f concurrency.Frame) { r.sess.HandleFrame(f) }

// Open dials the transport, negotiates (or, if the session was merely
// unbound by Suspend/heartbeat-lapse, reconnects without
// renegotiating), and returns once Negotiate's frame is on the wire.
// Open is idempotent with respect to session identity: the same UUID
// generated in New is reused across every call.
func (t *Trader) Open() error {
	t.mu.Lock()

	if t.sess != nil {
		switch t.sess.State() {
		case api.NotEstablished:
			sess := t.sess
			disp := t.disp
			bp := t.pool
			t.mu.Unlock()
			tr, err := t.dialTransport(disp, bp, sess)
			if err != nil {
				return err
			}
			t.mu.Lock()
			t.transport = tr
			t.source = tr.Source()
			t.mu.Unlock()
			return sess.Reconnect(tr)
		case api.Finalized:
			// fall through to the fresh-session path below.
		default:
			t.mu.Unlock()
			return api.ErrAlreadyExists
		}
	}

	bp := pool.NewBufferPool()
	sess := session.NewWithID(t.id, t.provider.SessionMessenger(), t.ctrl.Prometheus())
	sess.OnApplication(func(seqNo uint64, payload []byte) { t.deliver(seqNo, payload) })
	sess.OnError(t.notifyErr)

	router := &frameRouter{sess: sess}
	disp := concurrency.NewDispatcher(t.cfg.RingCapacity, router)
	if t.cfg.CPUPin >= 0 {
		disp.SetCPUPin(t.cfg.CPUPin)
	}

	t.pool = bp
	t.disp = disp
	t.sess = sess
	t.reqFactory = t.provider.RequestFactory(bp)
	t.respFactory = t.provider.ResponseFactory()
	t.closed = false
	t.mu.Unlock()

	disp.Start()

	tr, err := t.dialTransport(disp, bp, sess)
	if err != nil {
		disp.Stop()
		// Undo the fresh-session construction above so a retried Open
		// takes the fresh-session path again instead of hitting
		// ErrAlreadyExists, and so a Close called after this failed
		// Open sees sess == nil and safely no-ops.
		t.mu.Lock()
		t.pool = nil
		t.disp = nil
		t.sess = nil
		t.reqFactory = nil
		t.respFactory = nil
		t.mu.Unlock()
		return err
	}

	t.mu.Lock()
	t.transport = tr
	t.source = tr.Source()
	t.mu.Unlock()

	if t.cfg.MetricsAddr != "" {
		t.startMetricsServer()
	}
	t.startMetricsLoop()

	return sess.Negotiate(tr, t.cfg.HeartbeatInterval)
}

// dialTransport constructs and opens a fresh transport bound to disp
// via cfg.Dial, wiring its OnClose callback to unbind sess (§4.5's
// transport unbind transition) without transport importing session.
func (t *Trader) dialTransport(disp *concurrency.Dispatcher, bp api.BufferPool, sess *session.Session) (api.Transport, error) {
	tr, err := t.cfg.Dial(t.cfg, disp, bp, func() { sess.Unbind() })
	if err != nil {
		t.notifyErr(err)
		return nil, err
	}
	return tr, nil
}

// deliver wraps an in-order inbound application payload into a
// read-only Message view and hands it to the registered consumer. A
// decode failure is routed to the error listener and the session
// continues (§7's MessageError contract).
func (t *Trader) deliver(seqNo uint64, payload []byte) {
	t.mu.Lock()
	respFactory := t.respFactory
	consumer := t.consumer
	source := t.source
	t.mu.Unlock()

	if respFactory == nil {
		return
	}
	msg, err := respFactory.Wrap(payload)
	if err != nil {
		t.notifyErr(&api.MessageError{Reason: "decode inbound application frame", Err: err})
		return
	}
	if consumer != nil {
		consumer(source, msg, seqNo)
	}
}

// Send frames and transmits buf as the next application message, once
// the session reaches ESTABLISHED (bounded by cfg.SendTimeout). buf is
// always released, on both success and failure (§3, §8 invariant 5).
func (t *Trader) Send(buf api.Buffer) (uint64, error) {
	t.mu.Lock()
	sess := t.sess
	timeout := t.cfg.SendTimeout
	t.mu.Unlock()

	if sess == nil {
		buf.Release()
		return 0, api.ErrNotEstablished
	}
	seqNo, err := sess.SendApplication(buf.Bytes(), timeout)
	buf.Release()
	return seqNo, err
}

// CreateOrder returns a fresh NewOrderSingle builder backed by the
// trader's buffer pool (§4.6).
func (t *Trader) CreateOrder() (api.MutableNewOrderSingle, error) {
	t.mu.Lock()
	f := t.reqFactory
	t.mu.Unlock()
	if f == nil {
		return nil, fmt.Errorf("trader: not open")
	}
	return f.NewOrderSingle(), nil
}

// CreateOrderCancelRequest returns a fresh OrderCancelRequest builder.
func (t *Trader) CreateOrderCancelRequest() (api.MutableOrderCancelRequest, error) {
	t.mu.Lock()
	f := t.reqFactory
	t.mu.Unlock()
	if f == nil {
		return nil, fmt.Errorf("trader: not open")
	}
	return f.OrderCancelRequest(), nil
}

// Suspend closes the transport and waits (up to cfg.CloseTimeout) for
// the session to reach NOT_ESTABLISHED, without finalizing the
// session (§4.6).
func (t *Trader) Suspend() error {
	t.mu.Lock()
	sess := t.sess
	tr := t.transport
	timeout := t.cfg.CloseTimeout
	t.mu.Unlock()

	if sess == nil {
		return nil
	}
	if tr != nil {
		if err := tr.Close(); err != nil {
			t.notifyErr(&api.TransportError{Op: "suspend", Err: err})
		}
	}
	sess.Unbind()
	return sess.WaitForState(api.NotEstablished, timeout)
}

// Close finalizes the session, waits (up to cfg.CloseTimeout) for
// FINALIZED, then stops the dispatcher and transport (§4.6). Close is
// idempotent: a second call, or a call after an Open that failed at
// dial (which leaves sess nil), is a no-op rather than re-entering
// disp.Stop()/tr.Close() on already-torn-down state.
func (t *Trader) Close() error {
	t.mu.Lock()
	if t.closed || t.sess == nil {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	sess := t.sess
	tr := t.transport
	disp := t.disp
	timeout := t.cfg.CloseTimeout
	t.mu.Unlock()

	if err := sess.Finalize("trader close"); err != nil {
		t.notifyErr(err)
	}
	waitErr := sess.WaitForState(api.Finalized, timeout)

	if tr != nil {
		if err := tr.Close(); err != nil {
			t.notifyErr(&api.TransportError{Op: "close", Err: err})
		}
	}
	if disp != nil {
		disp.Stop()
	}
	t.stopMetricsLoop()
	t.stopMetricsServer()

	return waitErr
}

// notifyErr routes err to the registered listener, or logs it if none
// is registered (§7's propagation rule: decoding/transport errors
// never kill a worker, they surface to the trader's error sink).
func (t *Trader) notifyErr(err error) {
	t.mu.Lock()
	cb := t.errListener
	t.mu.Unlock()
	if cb != nil {
		cb(err)
		return
	}
	t.log.Errorf("%v", err)
}

// startMetricsLoop periodically mirrors dispatcher queue depth and
// buffer-pool usage into the Prometheus gauge set (§6's metrics
// endpoint is infrastructure-only; this loop is what keeps it live).
func (t *Trader) startMetricsLoop() {
	t.mu.Lock()
	disp := t.disp
	bp := t.pool
	prom := t.ctrl.Prometheus()
	t.metricsStop = make(chan struct{})
	stop := t.metricsStop
	t.mu.Unlock()

	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if disp != nil {
					prom.DispatcherQueueDepth.Set(float64(disp.Pending()))
				}
				if bp != nil {
					stats := bp.Stats()
					prom.BufferPoolInUse.Set(float64(stats.InUse))
					t.mu.Lock()
					delta := stats.DoubleFree - t.lastDblFree
					t.lastDblFree = stats.DoubleFree
					t.mu.Unlock()
					if delta > 0 {
						prom.BufferPoolDoubleFree.Add(float64(delta))
					}
				}
			}
		}
	}()
}

func (t *Trader) stopMetricsLoop() {
	t.mu.Lock()
	stop := t.metricsStop
	t.metricsStop = nil
	t.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

func (t *Trader) startMetricsServer() {
	control.StartMetricsServer(t.cfg.MetricsAddr, t.ctrl.Prometheus())
}

func (t *Trader) stopMetricsServer() {
	// StartMetricsServer's *http.Server is intentionally not retained
	// here: the CLI driver process exits at the same time the trader
	// is closed, so leaving the listener to the process teardown
	// matches the teacher's own fire-and-forget metrics server
	// (control/prometheus.go never stores the *http.Server either).
}
