// Package oscmixer implements mixer.Device for a network mixer that speaks
// OSC over UDP.
//
// The mixer pushes every parameter change to the address registered with
// /subscribe. Parameter messages are cached locally and mark the cache dirty;
// GetAllParameters serves the cache. Writes are queued and sent in order by a
// single rate-limited sender goroutine.
package oscmixer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/mixd/internal/mixer"
)

// ErrQueueFull is returned when the outbound write queue has no space.
var ErrQueueFull = errors.New("osc write queue full")

// Config contains OSC mixer connection settings.
type Config struct {
	Host         string        // Mixer host
	Port         int           // Mixer OSC port
	ListenAddr   string        // Local address the mixer replies to
	LoginTimeout time.Duration // How long Login waits for /info/type
	WriteRate    float64       // Outbound messages per second
	QueueSize    int           // Outbound queue capacity
}

// Sender sends OSC packets to the mixer. *osc.Client satisfies it.
type Sender interface {
	Send(packet osc.Packet) error
}

type levelKey struct {
	bus   bool
	index int
}

// Device is an OSC mixer connection.
type Device struct {
	cfg        Config
	client     Sender
	dispatcher *Dispatcher
	limiter    *rate.Limiter

	connected atomic.Bool
	dirty     atomic.Bool
	lastSeen  atomic.Int64 // unix nanos of the last inbound message

	mu     sync.RWMutex
	typ    mixer.Type
	strips map[int]mixer.Params
	buses  map[int]mixer.Params
	levels map[levelKey]mixer.Level

	typeCh chan mixer.Type

	// connection lifetime
	conn   net.PacketConn
	qmu    sync.Mutex
	queue  chan *osc.Message
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ mixer.Device = (*Device)(nil)

// New creates a device that talks to cfg.Host:cfg.Port.
func New(cfg Config) *Device {
	return NewWithSender(cfg, osc.NewClient(cfg.Host, cfg.Port))
}

// NewWithSender creates a device with a custom packet sender.
func NewWithSender(cfg Config, client Sender) *Device {
	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = 3 * time.Second
	}
	if cfg.WriteRate <= 0 {
		cfg.WriteRate = 200
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":0"
	}

	d := &Device{
		cfg:        cfg,
		client:     client,
		dispatcher: NewDispatcher(),
		limiter:    rate.NewLimiter(rate.Limit(cfg.WriteRate), max(1, int(cfg.WriteRate/10))),
		strips:     make(map[int]mixer.Params),
		buses:      make(map[int]mixer.Params),
		levels:     make(map[levelKey]mixer.Level),
		typeCh:     make(chan mixer.Type, 1),
	}
	d.routes()
	return d
}

// Dispatcher exposes the inbound router, mainly for injecting messages.
func (d *Device) Dispatcher() *Dispatcher {
	return d.dispatcher
}

func (d *Device) routes() {
	d.dispatcher.Handle("/info/type", d.handleType)
	d.dispatcher.Handle("/strip/@/level", func(msg *osc.Message, c []string) { d.handleLevel(false, msg, c) })
	d.dispatcher.Handle("/bus/@/level", func(msg *osc.Message, c []string) { d.handleLevel(true, msg, c) })
	d.dispatcher.Handle("/strip/@/@", func(msg *osc.Message, c []string) { d.handleParam(d.strips, msg, c) })
	d.dispatcher.Handle("/bus/@/@", func(msg *osc.Message, c []string) { d.handleParam(d.buses, msg, c) })
}

// Login binds the reply socket, subscribes to parameter pushes and waits for
// the mixer to announce its model.
func (d *Device) Login(ctx context.Context) error {
	if d.connected.Load() {
		return nil
	}

	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", d.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to bind OSC reply socket: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	queue := make(chan *osc.Message, d.cfg.QueueSize)
	d.conn = conn
	d.cancel = cancel
	d.qmu.Lock()
	d.queue = queue
	d.qmu.Unlock()

	server := &osc.Server{Dispatcher: d.dispatcher}
	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		if err := server.Serve(conn); err != nil && runCtx.Err() == nil {
			log.Debug().Err(err).Msg("OSC server stopped")
		}
	}()
	go func() {
		defer d.wg.Done()
		d.sendLoop(runCtx, queue)
	}()

	// Drop a stale announcement from a previous session.
	select {
	case <-d.typeCh:
	default:
	}

	port := 0
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		port = addr.Port
	}
	if err := d.enqueue(osc.NewMessage("/subscribe", int32(port))); err != nil {
		d.teardown()
		return err
	}

	timer := time.NewTimer(d.cfg.LoginTimeout)
	defer timer.Stop()

	select {
	case typ := <-d.typeCh:
		d.mu.Lock()
		d.typ = typ
		d.mu.Unlock()
		d.connected.Store(true)
		d.dirty.Store(true)
		log.Info().
			Str("host", d.cfg.Host).
			Int("port", d.cfg.Port).
			Str("type", typ.String()).
			Msg("OSC mixer connected")
		return nil
	case <-timer.C:
		d.teardown()
		return fmt.Errorf("no reply from %s:%d: %w", d.cfg.Host, d.cfg.Port, mixer.ErrNotFound)
	case <-ctx.Done():
		d.teardown()
		return ctx.Err()
	}
}

// Logout unsubscribes and releases the socket.
func (d *Device) Logout() error {
	if d.cancel == nil {
		return nil
	}
	if d.connected.Load() {
		if err := d.enqueue(osc.NewMessage("/unsubscribe")); err != nil {
			log.Warn().Err(err).Msg("Failed to queue OSC unsubscribe")
		}
	}
	d.connected.Store(false)
	d.teardown()
	return nil
}

func (d *Device) teardown() {
	d.qmu.Lock()
	if d.queue != nil {
		close(d.queue)
		d.queue = nil
	}
	d.qmu.Unlock()
	if d.conn != nil {
		d.conn.Close()
	}
	// Closing the queue lets the sender flush; cancelling aborts limiter waits.
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		d.cancel()
		<-done
	}
	d.cancel()
	d.conn = nil
	d.cancel = nil
}

func (d *Device) sendLoop(ctx context.Context, queue <-chan *osc.Message) {
	for msg := range queue {
		if err := d.limiter.Wait(ctx); err != nil {
			return
		}
		if err := d.client.Send(msg); err != nil {
			log.Warn().Err(err).Str("address", msg.Address).Msg("Failed to send OSC message")
		}
	}
}

func (d *Device) enqueue(msg *osc.Message) error {
	d.qmu.Lock()
	defer d.qmu.Unlock()
	if d.queue == nil {
		return mixer.ErrNotConnected
	}
	select {
	case d.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// TestConnection asks the mixer for its model and reports whether anything
// arrived from it within the login timeout. A quiet mixer gets one timeout to
// answer the request.
func (d *Device) TestConnection(ctx context.Context) bool {
	if !d.connected.Load() {
		return false
	}
	if err := d.enqueue(osc.NewMessage("/info/type")); err != nil {
		log.Debug().Err(err).Msg("Failed to queue OSC connection check")
	}
	if d.heardWithin(d.cfg.LoginTimeout) {
		return true
	}

	timer := time.NewTimer(d.cfg.LoginTimeout)
	defer timer.Stop()
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			if d.heardWithin(d.cfg.LoginTimeout) {
				return true
			}
		case <-timer.C:
			log.Warn().
				Str("host", d.cfg.Host).
				Int("port", d.cfg.Port).
				Dur("silent_for", time.Since(time.Unix(0, d.lastSeen.Load()))).
				Msg("OSC mixer stopped answering")
			return false
		case <-ctx.Done():
			return false
		}
	}
}

func (d *Device) touch() {
	d.lastSeen.Store(time.Now().UnixNano())
}

func (d *Device) heardWithin(window time.Duration) bool {
	return time.Since(time.Unix(0, d.lastSeen.Load())) <= window
}

func (d *Device) DeviceInfo(ctx context.Context) (mixer.Info, error) {
	if !d.connected.Load() {
		return mixer.Info{}, mixer.ErrNotConnected
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return mixer.Info{Type: d.typ}, nil
}

func (d *Device) GetAllParameters(ctx context.Context) (*mixer.Snapshot, error) {
	if !d.connected.Load() {
		return nil, mixer.ErrNotConnected
	}
	d.dirty.Store(false)

	d.mu.RLock()
	defer d.mu.RUnlock()

	strips, buses := d.typ.Counts()
	snap := &mixer.Snapshot{
		Strips: make([]mixer.Params, strips),
		Buses:  make([]mixer.Params, buses),
	}
	for i := range snap.Strips {
		if p, ok := d.strips[i]; ok {
			snap.Strips[i] = p.Clone()
		} else {
			snap.Strips[i] = mixer.NewParams(i, "")
		}
	}
	for i := range snap.Buses {
		if p, ok := d.buses[i]; ok {
			snap.Buses[i] = p.Clone()
		} else {
			snap.Buses[i] = mixer.NewParams(i, "")
		}
	}
	return snap, nil
}

func (d *Device) IsParametersDirty() bool {
	return d.connected.Load() && d.dirty.Load()
}

func (d *Device) SetStripParameter(name string, index int, value any) error {
	return d.write(fmt.Sprintf("/strip/%d/%s", index, mixer.Normalize(name)), value)
}

func (d *Device) SetBusParameter(name string, index int, value any) error {
	return d.write(fmt.Sprintf("/bus/%d/%s", index, mixer.Normalize(name)), value)
}

func (d *Device) write(addr string, value any) error {
	if !d.connected.Load() {
		return mixer.ErrNotConnected
	}
	arg, err := encodeValue(value)
	if err != nil {
		return fmt.Errorf("%s: %w", addr, err)
	}
	return d.enqueue(osc.NewMessage(addr, arg))
}

func (d *Device) GetLevel(kind mixer.LevelKind, index int) (mixer.Level, bool) {
	if !d.connected.Load() {
		return mixer.Level{}, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.levels[levelKey{bus: kind == mixer.LevelOutput, index: index}]
	return l, ok
}

func (d *Device) SendRawCommand(text string) error {
	if !d.connected.Load() {
		return mixer.ErrNotConnected
	}
	return d.enqueue(osc.NewMessage("/command", text))
}

func (d *Device) handleType(msg *osc.Message, _ []string) {
	if len(msg.Arguments) == 0 {
		return
	}
	var typ mixer.Type
	switch v := msg.Arguments[0].(type) {
	case string:
		typ = mixer.ParseType(v)
	case int32:
		typ = mixer.ParseType(strconv.Itoa(int(v)))
	default:
		log.Warn().Interface("value", v).Msg("Unexpected OSC mixer type reply")
		return
	}
	d.touch()
	select {
	case d.typeCh <- typ:
	default:
	}
}

func (d *Device) handleParam(target map[int]mixer.Params, msg *osc.Message, captures []string) {
	if len(captures) != 2 || len(msg.Arguments) == 0 {
		return
	}
	d.touch()
	index, err := strconv.Atoi(captures[0])
	if err != nil || index < 0 {
		log.Debug().Str("address", msg.Address).Msg("Ignoring OSC message with bad index")
		return
	}
	value, err := decodeValue(msg.Arguments[0])
	if err != nil {
		log.Debug().Err(err).Str("address", msg.Address).Msg("Ignoring OSC message")
		return
	}

	d.mu.Lock()
	p, ok := target[index]
	if !ok {
		p = mixer.NewParams(index, "")
	}
	err = p.Set(captures[1], value)
	target[index] = p
	d.mu.Unlock()

	if err != nil {
		log.Debug().Err(err).Str("address", msg.Address).Msg("Ignoring OSC parameter")
		return
	}
	d.dirty.Store(true)
}

func (d *Device) handleLevel(bus bool, msg *osc.Message, captures []string) {
	if len(captures) != 1 || len(msg.Arguments) < 2 {
		return
	}
	d.touch()
	index, err := strconv.Atoi(captures[0])
	if err != nil {
		return
	}
	l, okL := toFloat(msg.Arguments[0])
	r, okR := toFloat(msg.Arguments[1])
	if !okL || !okR {
		return
	}
	d.mu.Lock()
	d.levels[levelKey{bus: bus, index: index}] = mixer.Level{L: l, R: r}
	d.mu.Unlock()
}

// encodeValue converts a parameter value to its OSC argument. Booleans travel
// as int32 0/1 since not every mixer understands the T/F tags.
func encodeValue(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return int32(1), nil
		}
		return int32(0), nil
	case float64:
		return float32(v), nil
	case float32:
		return v, nil
	case int:
		return float32(v), nil
	case int32:
		return float32(v), nil
	case string:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", value)
	}
}

// decodeValue converts an OSC argument to a parameter value. Integers are
// switch states; floats are continuous values.
func decodeValue(arg any) (any, error) {
	switch v := arg.(type) {
	case int32:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case bool:
		return v, nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported OSC argument %T", arg)
	}
}

func toFloat(arg any) (float64, bool) {
	switch v := arg.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int32:
		return float64(v), true
	default:
		return 0, false
	}
}
