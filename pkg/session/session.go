package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/atomic"

	"github.com/alti2-tools/neptune-go/pkg/cipher"
	"github.com/alti2-tools/neptune-go/pkg/device"
	"github.com/alti2-tools/neptune-go/pkg/interaction"
	"github.com/alti2-tools/neptune-go/pkg/log"
	"github.com/alti2-tools/neptune-go/pkg/logbook"
	"github.com/alti2-tools/neptune-go/pkg/transport"
	"github.com/alti2-tools/neptune-go/pkg/wire"
)

// Session errors.
var (
	// ErrNotDisconnected indicates Connect on a session that already
	// ran a connection attempt. A fresh attempt needs a fresh session.
	ErrNotDisconnected = errors.New("connect requires a disconnected session")

	// ErrNotAuthenticated indicates logbook access before the
	// handshake completed.
	ErrNotAuthenticated = errors.New("session not authenticated")

	// ErrUnsupportedDevice indicates a product the capability table
	// does not know. The session faults rather than guessing the
	// logbook format.
	ErrUnsupportedDevice = errors.New("unsupported device")
)

// maxPages bounds a logbook download. The page index is a single byte,
// so the device cannot address more.
const maxPages = 256

// Config holds session parameters. The zero value is usable.
type Config struct {
	// Transaction carries the retry and timeout budget handed to the
	// transaction engine.
	Transaction interaction.Config

	// Logger receives protocol capture events. Nil disables capture.
	Logger log.Logger

	// Port labels capture events with the host-side channel name.
	Port string
}

// Session is the single entry point for one connection attempt to an
// instrument. It owns the channel and releases it on Disconnect.
//
// A Session serializes its own use: Connect, DownloadLogbook and
// Disconnect may be called from different goroutines, but only one
// device operation runs at a time.
type Session struct {
	mu sync.Mutex

	id      string
	ch      transport.Channel
	engine  *interaction.Engine
	machine *fsm.FSM
	logger  log.Logger
	cfg     Config

	info    *device.Info
	caps    device.Capabilities
	session *cipher.Cipher

	released atomic.Bool
}

// New creates a session over the given channel. The channel is owned by
// the session from this point on; Disconnect closes it.
func New(ch transport.Channel, cfg Config) *Session {
	s := &Session{
		id:     uuid.NewString(),
		ch:     ch,
		logger: log.OrNoop(cfg.Logger),
		cfg:    cfg,
	}
	s.engine = interaction.NewEngine(ch, cfg.Transaction, cfg.Logger)
	s.engine.SetCaptureIdentity(s.id, "", cfg.Port)
	s.machine = newHandshakeFSM(s.logStateChange)
	return s
}

// ID returns the session's capture identifier.
func (s *Session) ID() string { return s.id }

// State returns the current handshake state name.
func (s *Session) State() string {
	return s.machine.Current()
}

// IsAuthenticated reports whether the handshake completed. Idempotent
// and safe to call from any state.
func (s *Session) IsAuthenticated() bool {
	return s.machine.Current() == StateAuthenticated
}

// DeviceInfo returns the identity recorded during the handshake, or nil
// before it completed.
func (s *Session) DeviceInfo() *device.Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Capabilities returns the negotiated capabilities. Zero value before
// authentication.
func (s *Session) Capabilities() device.Capabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps
}

// Connect runs the handshake: identify the device, look up its
// capabilities and derive the session cipher. On success the session is
// authenticated; on any failure it is faulted and the error names the
// handshake as the failing phase. A faulted session is not retried
// here; the caller reconnects with a fresh session.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.machine.Event(ctx, eventConnect); err != nil {
		return fmt.Errorf("%w: state %s", ErrNotDisconnected, s.machine.Current())
	}

	reply, err := s.engine.Execute(ctx, wire.KindGetInfo, nil)
	if err != nil {
		return s.fault("handshake", fmt.Errorf("identification: %w", err))
	}

	info, err := device.ParseInfo(reply)
	if err != nil {
		return s.fault("handshake", fmt.Errorf("identification: %w", err))
	}
	if err := s.machine.Event(context.Background(), eventIdentified); err != nil {
		return s.fault("handshake", err)
	}

	caps, ok := device.CapabilitiesFor(info.Product, info.ProtocolVersion)
	if !ok {
		return s.fault("handshake", fmt.Errorf("%w: %s", ErrUnsupportedDevice, info.Product))
	}

	key, err := cipher.FromType0(reply.Raw)
	if err != nil {
		return s.fault("handshake", fmt.Errorf("key derivation: %w", err))
	}

	s.info = info
	s.caps = caps
	s.session = key
	s.engine.SetCaptureIdentity(s.id, info.SerialNumber, s.cfg.Port)

	if err := s.machine.Event(context.Background(), eventNegotiated); err != nil {
		return s.fault("handshake", err)
	}
	return nil
}

// DownloadLogbook pages the device's logbook memory, decrypts and
// decodes it, and delivers every record to the sink in decode order.
//
// Records that fail validation are returned as DecodeErrors alongside
// the successfully delivered ones; the caller decides whether partial
// data is acceptable. Transaction failures do not fault an
// authenticated session: the download may simply be retried.
func (s *Session) DownloadLogbook(ctx context.Context, sink logbook.Sink) ([]*logbook.DecodeError, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.Current() != StateAuthenticated {
		return nil, ErrNotAuthenticated
	}

	var dump []byte
	for page := 0; page < maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extraction: %w", err)
		}

		reply, err := s.engine.Execute(ctx, wire.KindReadLogbook, []byte{byte(page)})
		if err != nil {
			s.logError("extraction", err, nil)
			return nil, fmt.Errorf("extraction: page %d: %w", page, err)
		}
		if len(reply.Data) == 0 {
			break
		}

		payload := reply.Data
		if s.caps.EncryptedPages {
			payload = s.session.Decrypt(payload)
		}
		dump = append(dump, payload...)
	}

	records, decodeErrs, err := logbook.Decode(dump, s.caps)
	if err != nil {
		s.logError("extraction", err, dump)
		return nil, fmt.Errorf("extraction: %w", err)
	}
	for _, de := range decodeErrs {
		s.logError("extraction", de, de.Raw)
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return decodeErrs, fmt.Errorf("extraction: %w", err)
		}
		if err := sink.Accept(rec); err != nil {
			return decodeErrs, fmt.Errorf("extraction: sink: %w", err)
		}
	}
	return decodeErrs, nil
}

// Disconnect tears the session down. Safe to call from any state,
// including mid-failure, and idempotent: the channel is closed exactly
// once and the session returns to disconnected.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.Current() != StateDisconnected {
		// Transition errors cannot happen: disconnect is legal from
		// every state.
		_ = s.machine.Event(context.Background(), eventDisconnect, "disconnect requested")
	}

	if !s.released.CompareAndSwap(false, true) {
		return nil
	}
	_ = s.engine.Close()
	if err := s.ch.Close(); err != nil && !errors.Is(err, transport.ErrChannelClosed) {
		return fmt.Errorf("close channel: %w", err)
	}
	return nil
}

// fault moves the session to faulted, logs the failure and returns it
// wrapped with the failing phase.
func (s *Session) fault(phase string, err error) error {
	_ = s.machine.Event(context.Background(), eventFault, err.Error())
	s.logError(phase, err, nil)
	return fmt.Errorf("%s: %w", phase, err)
}

func (s *Session) logStateChange(old, new, reason string) {
	serial := ""
	if s.info != nil {
		serial = s.info.SerialNumber
	}
	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		SessionID:    s.id,
		Direction:    log.DirectionOut,
		Layer:        log.LayerSession,
		Category:     log.CategoryState,
		SerialNumber: serial,
		Port:         s.cfg.Port,
		StateChange: &log.StateChangeEvent{
			OldState: old,
			NewState: new,
			Reason:   reason,
		},
	})
}

func (s *Session) logError(phase string, err error, raw []byte) {
	serial := ""
	if s.info != nil {
		serial = s.info.SerialNumber
	}
	data, _ := log.TruncateFrameData(raw)
	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		SessionID:    s.id,
		Direction:    log.DirectionIn,
		Layer:        log.LayerSession,
		Category:     log.CategoryError,
		SerialNumber: serial,
		Port:         s.cfg.Port,
		Error: &log.ErrorEventData{
			Phase:   phase,
			Message: err.Error(),
			Raw:     data,
		},
	})
}
