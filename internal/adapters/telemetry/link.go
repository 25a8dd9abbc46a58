// Package telemetry streams capture samples to the analysis service and
// returns its feedback, one WebSocket connection per active module.
//
// A Link never retries or reconnects. Sends are fire-and-forget: when the
// link is not connected, or the outbound buffer is full, the message is
// dropped and counted.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/okian/neurolens/internal/adapters/mq/queue"
	"github.com/okian/neurolens/internal/config"
	"github.com/okian/neurolens/internal/domain/feedback"
	"github.com/okian/neurolens/internal/domain/model"
	"github.com/okian/neurolens/pkg/logger"
	"github.com/okian/neurolens/pkg/metrics"
)

// Default link configuration constants.
const (
	defaultOutboundBuffer = 8
	defaultInboundBuffer  = 32
	defaultOrigin         = "http://localhost/"
)

// Dialer opens Links against the analysis service endpoints.
type Dialer struct {
	endpoints      config.Endpoints
	origin         string
	outboundBuffer int
	inboundBuffer  int
	envelopeAudio  bool
	logger         logger.Logger
}

// NewDialer creates a Dialer for the resolved endpoints.
func NewDialer(endpoints config.Endpoints, opts ...Option) *Dialer {
	d := &Dialer{
		endpoints:      endpoints,
		origin:         defaultOrigin,
		outboundBuffer: defaultOutboundBuffer,
		inboundBuffer:  defaultInboundBuffer,
		logger:         logger.Get().Named("telemetry"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// URLFor returns the socket URL serving task.
func (d *Dialer) URLFor(task model.Task) string {
	if task.Audio() {
		return d.endpoints.AudioSocket
	}
	return d.endpoints.AnalyzeSocket
}

// Open starts connecting a link for task and returns immediately. The link
// is torn down when ctx is done or Close is called.
func (d *Dialer) Open(ctx context.Context, task model.Task) *Link {
	ctx, cancel := context.WithCancel(ctx)
	l := &Link{
		task:     task,
		url:      d.URLFor(task),
		origin:   d.origin,
		envelope: d.envelopeAudio,
		logger:   d.logger.Named(string(task)),
		outbound: queue.NewInMemoryQueue[model.Outbound](
			queue.WithCapacity(d.outboundBuffer),
			queue.WithName("telemetry_"+string(task)),
		),
		inbound: make(chan feedback.Feedback, d.inboundBuffer),
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	go l.run()
	return l
}

// Link is one live connection for one module.
type Link struct {
	task     model.Task
	url      string
	origin   string
	envelope bool
	logger   logger.Logger

	outbound *queue.InMemoryQueue[model.Outbound]
	inbound  chan feedback.Feedback

	ready chan struct{}
	done  chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	err       error
	closeOnce sync.Once
}

// Task returns the module tag the link serves.
func (l *Link) Task() model.Task { return l.task }

// Connected reports whether the socket is open and accepting sends.
func (l *Link) Connected() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.connected
}

// Ready is closed once the handshake succeeds. It stays open forever if the
// connect fails; watch Done for that.
func (l *Link) Ready() <-chan struct{} { return l.ready }

// Done is closed when the link has stopped for any reason.
func (l *Link) Done() <-chan struct{} { return l.done }

// Err returns the connect or read error that stopped the link, if any.
func (l *Link) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

// Inbound delivers validated feedback. It is closed when the link stops.
func (l *Link) Inbound() <-chan feedback.Feedback { return l.inbound }

// Send queues msg for the socket writer and never blocks. It reports
// whether the message was accepted.
func (l *Link) Send(msg model.Outbound) bool {
	if !l.Connected() {
		metrics.RecordTelemetryDropped(string(l.task))
		return false
	}
	if !l.outbound.Enqueue(l.ctx, msg) {
		metrics.RecordTelemetryDropped(string(l.task))
		return false
	}
	return true
}

// Close stops the link and waits for its goroutines. It is idempotent.
func (l *Link) Close() error {
	l.closeOnce.Do(func() {
		l.cancel()
		l.mu.Lock()
		conn := l.conn
		l.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
	})
	<-l.done
	return nil
}

func (l *Link) run() {
	defer close(l.done)
	defer close(l.inbound)
	defer func() { _ = l.outbound.Close() }()
	defer l.cancel()

	cfg, err := websocket.NewConfig(l.url, l.origin)
	if err != nil {
		l.fail(fmt.Errorf("%w: %w", ErrNotConnected, err))
		metrics.RecordLinkConnect(string(l.task), "error")
		return
	}
	conn, err := cfg.DialContext(l.ctx)
	if err != nil {
		l.fail(fmt.Errorf("%w: dial %s: %w", ErrNotConnected, l.url, err))
		metrics.RecordLinkConnect(string(l.task), "error")
		l.logger.Warn(l.ctx, "link connect failed", logger.String("url", l.url), logger.Error(err))
		return
	}

	l.mu.Lock()
	if l.ctx.Err() != nil {
		l.mu.Unlock()
		_ = conn.Close()
		l.fail(ErrClosed)
		return
	}
	l.conn = conn
	l.connected = true
	l.mu.Unlock()
	close(l.ready)
	metrics.RecordLinkConnect(string(l.task), "ok")
	l.logger.Info(l.ctx, "link connected", logger.String("url", l.url))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		l.writeLoop(conn)
	}()
	go func() {
		defer wg.Done()
		<-l.ctx.Done()
		_ = conn.Close()
	}()

	l.readLoop(conn)

	l.mu.Lock()
	l.connected = false
	l.mu.Unlock()
	l.cancel()
	_ = conn.Close()
	wg.Wait()
	l.logger.Info(context.WithoutCancel(l.ctx), "link closed", logger.Error(l.Err()))
}

func (l *Link) writeLoop(conn *websocket.Conn) {
	msgs := l.outbound.Dequeue(l.ctx)
	for {
		var msg model.Outbound
		select {
		case <-l.ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			msg = m
		}
		var err error
		if l.task.Audio() && !l.envelope {
			err = websocket.Message.Send(conn, msg.Audio)
		} else {
			err = websocket.JSON.Send(conn, msg)
		}
		if err != nil {
			metrics.RecordTelemetryDropped(string(l.task))
			if l.ctx.Err() == nil {
				l.fail(fmt.Errorf("write: %w", err))
				l.cancel()
				_ = conn.Close()
			}
			return
		}
		metrics.RecordTelemetrySent(string(l.task))
	}
}

func (l *Link) readLoop(conn *websocket.Conn) {
	for {
		var raw []byte
		if err := websocket.Message.Receive(conn, &raw); err != nil {
			switch {
			case l.ctx.Err() != nil:
				l.fail(ErrClosed)
			case errors.Is(err, io.EOF):
				l.fail(fmt.Errorf("%w: remote closed", ErrClosed))
			default:
				l.fail(fmt.Errorf("read: %w", err))
			}
			return
		}
		fb, err := feedback.Decode(l.task, raw)
		if err != nil {
			metrics.RecordFeedbackInvalid(string(l.task))
			l.logger.Debug(l.ctx, "dropping invalid feedback", logger.Error(err))
			continue
		}
		metrics.RecordFeedbackReceived(string(l.task))
		select {
		case l.inbound <- fb:
		case <-l.ctx.Done():
			l.fail(ErrClosed)
			return
		}
	}
}

// fail records the first error that stops the link.
func (l *Link) fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err == nil {
		l.err = err
	}
}
