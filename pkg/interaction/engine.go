package interaction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/alti2-tools/neptune-go/pkg/log"
	"github.com/alti2-tools/neptune-go/pkg/transport"
	"github.com/alti2-tools/neptune-go/pkg/wire"
)

// Engine errors.
var (
	// ErrBusy indicates a transaction is already in flight.
	ErrBusy = errors.New("transaction already in flight")

	// ErrEngineClosed indicates the engine has been closed.
	ErrEngineClosed = errors.New("engine is closed")

	// ErrNoReplyKind indicates a request kind with no defined reply.
	ErrNoReplyKind = errors.New("request kind has no defined reply")
)

// TimeoutError reports a request that got no reply within the attempt
// budget. The device was either disconnected or powered off mid-session.
type TimeoutError struct {
	RequestKind wire.Kind
	Attempts    int
	ReplyWait   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no reply to %s after %d attempts of %s",
		e.RequestKind, e.Attempts, e.ReplyWait)
}

// Timeout marks the error as a timeout for errors.As callers.
func (e *TimeoutError) Timeout() bool { return true }

// ProtocolError reports a well-formed reply of a kind the outstanding
// request cannot accept. The link framing is intact but the two sides
// disagree about the conversation, so the session must not continue.
type ProtocolError struct {
	RequestKind wire.Kind
	GotKind     wire.Kind
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("unexpected %s reply to %s", e.GotKind, e.RequestKind)
}

// DeviceError reports an explicit NAK from the instrument.
type DeviceError struct {
	RequestKind wire.Kind
	Reason      byte
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device rejected %s (reason 0x%02X)", e.RequestKind, e.Reason)
}

// Config holds the transaction timing parameters.
type Config struct {
	// ReplyWait is how long one attempt waits for the reply before the
	// request is re-sent. Default 10s, matching the vendor software.
	ReplyWait time.Duration

	// MaxAttempts is the total attempt budget per transaction,
	// including the first send. Default 3.
	MaxAttempts int

	// PollInterval is the granularity of the read loop: how long one
	// channel read may block before the deadline and the context are
	// rechecked. Default 50ms.
	PollInterval time.Duration
}

// Defaults fills unset fields with their default values.
func (c Config) Defaults() Config {
	if c.ReplyWait <= 0 {
		c.ReplyWait = 10 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 50 * time.Millisecond
	}
	return c
}

// readChunk is how many bytes one channel read may return. Covers the
// largest legal reply frame in its wire encoding.
const readChunk = 1024

// Engine runs transactions over a byte channel: encode, send, collect
// the reply, retry on silence. One transaction at a time; see the
// package documentation for the full contract.
type Engine struct {
	mu sync.Mutex

	ch     transport.Channel
	dec    *wire.StreamDecoder
	cfg    Config
	logger log.Logger
	closed atomic.Bool

	// Capture identity, set by the session once known.
	sessionID string
	serial    string
	port      string
}

// NewEngine creates an engine over the given channel. A nil logger
// disables capture.
func NewEngine(ch transport.Channel, cfg Config, logger log.Logger) *Engine {
	return &Engine{
		ch:     ch,
		dec:    wire.NewStreamDecoder(),
		cfg:    cfg.Defaults(),
		logger: log.OrNoop(logger),
	}
}

// SetCaptureIdentity attaches session metadata to subsequent capture
// events. The serial number is usually empty until the handshake has
// identified the device.
func (e *Engine) SetCaptureIdentity(sessionID, serial, port string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessionID = sessionID
	e.serial = serial
	e.port = port
}

// Close marks the engine closed. It does not close the channel; the
// session owns that.
func (e *Engine) Close() error {
	e.closed.Store(true)
	return nil
}

// Execute runs one transaction: send the request, wait for the reply
// kind the request defines, re-send on silence. Returns the reply frame,
// or a *TimeoutError, *ProtocolError or *DeviceError. ErrBusy is
// returned immediately when another transaction is in flight.
func (e *Engine) Execute(ctx context.Context, kind wire.Kind, body []byte) (*wire.Frame, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	expect, ok := wire.ReplyKind(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoReplyKind, kind)
	}

	if !e.mu.TryLock() {
		return nil, ErrBusy
	}
	defer e.mu.Unlock()

	request, err := wire.Encode(kind, body)
	if err != nil {
		return nil, err
	}

	// A reply to an abandoned earlier attempt may still be in flight.
	// Drain it now so it cannot be matched against this transaction.
	e.drain()

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		start := time.Now()

		if _, err := e.ch.Write(request); err != nil {
			e.logTransaction(kind, attempt, "transport", time.Since(start))
			return nil, fmt.Errorf("send %s: %w", kind, err)
		}
		e.logFrame(log.DirectionOut, kind, body)

		reply, err := e.collect(ctx, kind, expect)
		if err == nil {
			e.logTransaction(kind, attempt, "ok", time.Since(start))
			return reply, nil
		}

		var outcome string
		switch err.(type) {
		case *ProtocolError:
			outcome = "unexpected"
		case *DeviceError:
			outcome = "nak"
		default:
			if errors.Is(err, errSilent) {
				outcome = "timeout"
			} else {
				outcome = "transport"
			}
		}
		e.logTransaction(kind, attempt, outcome, time.Since(start))

		if !errors.Is(err, errSilent) {
			return nil, err
		}
		// Silence. The request is idempotent, so re-send it verbatim.
	}

	return nil, &TimeoutError{
		RequestKind: kind,
		Attempts:    e.cfg.MaxAttempts,
		ReplyWait:   e.cfg.ReplyWait,
	}
}

// errSilent is the internal marker for an attempt that saw no frame at
// all. Never escapes Execute.
var errSilent = errors.New("no reply within deadline")

// collect reads the channel until the expected reply arrives or the
// attempt deadline passes.
func (e *Engine) collect(ctx context.Context, request, expect wire.Kind) (*wire.Frame, error) {
	deadline := time.Now().Add(e.cfg.ReplyWait)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		remain := time.Until(deadline)
		if remain <= 0 {
			return nil, errSilent
		}
		wait := e.cfg.PollInterval
		if wait > remain {
			wait = remain
		}

		chunk, err := e.ch.ReadAvailable(readChunk, wait)
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}

		frames := e.dec.Feed(chunk)
		e.logFaults()

		for _, f := range frames {
			e.logFrame(log.DirectionIn, f.Kind, f.Data)
			switch f.Kind {
			case expect:
				return f, nil
			case wire.KindNak:
				reason := byte(0)
				if len(f.Data) > 0 {
					reason = f.Data[0]
				}
				return nil, &DeviceError{RequestKind: request, Reason: reason}
			default:
				return nil, &ProtocolError{RequestKind: request, GotKind: f.Kind}
			}
		}
	}
}

// drain discards stale channel bytes and resets the decoder. Errors are
// ignored; a failing channel will surface on the send that follows.
func (e *Engine) drain() {
	for {
		chunk, err := e.ch.ReadAvailable(readChunk, 0)
		if err != nil || len(chunk) == 0 {
			break
		}
	}
	e.dec.Reset()
}

func (e *Engine) logFrame(dir log.Direction, kind wire.Kind, body []byte) {
	data, truncated := log.TruncateFrameData(body)
	e.logger.Log(log.Event{
		Timestamp:    time.Now(),
		SessionID:    e.sessionID,
		Direction:    dir,
		Layer:        log.LayerWire,
		Category:     log.CategoryFrame,
		SerialNumber: e.serial,
		Port:         e.port,
		Frame: &log.FrameEvent{
			Kind:      uint8(kind),
			KindName:  kind.String(),
			Size:      len(body),
			Data:      data,
			Truncated: truncated,
		},
	})
}

func (e *Engine) logTransaction(kind wire.Kind, attempt int, outcome string, elapsed time.Duration) {
	e.logger.Log(log.Event{
		Timestamp:    time.Now(),
		SessionID:    e.sessionID,
		Direction:    log.DirectionOut,
		Layer:        log.LayerWire,
		Category:     log.CategoryTransaction,
		SerialNumber: e.serial,
		Port:         e.port,
		Transaction: &log.TransactionEvent{
			RequestKind: uint8(kind),
			Attempt:     attempt,
			MaxAttempts: e.cfg.MaxAttempts,
			Outcome:     outcome,
			Elapsed:     elapsed,
		},
	})
}

// logFaults reports resynchronization episodes the decoder recorded
// since the last read.
func (e *Engine) logFaults() {
	for _, fault := range e.dec.TakeFaults() {
		e.logger.Log(log.Event{
			Timestamp:    time.Now(),
			SessionID:    e.sessionID,
			Direction:    log.DirectionIn,
			Layer:        log.LayerWire,
			Category:     log.CategoryResync,
			SerialNumber: e.serial,
			Port:         e.port,
			Resync: &log.ResyncEvent{
				Skipped: e.dec.Skipped(),
				Reason:  fault.Error(),
			},
		})
	}
}
