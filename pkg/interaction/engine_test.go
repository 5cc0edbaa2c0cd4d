package interaction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alti2-tools/neptune-go/internal/testharness"
	"github.com/alti2-tools/neptune-go/pkg/log"
	"github.com/alti2-tools/neptune-go/pkg/wire"
)

// fastConfig keeps the retry machinery observable without slowing the
// test run down.
func fastConfig() Config {
	return Config{
		ReplyWait:    50 * time.Millisecond,
		MaxAttempts:  3,
		PollInterval: 5 * time.Millisecond,
	}
}

// collectLogger records events for assertions.
type collectLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (l *collectLogger) Log(e log.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *collectLogger) byCategory(c log.Category) []log.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []log.Event
	for _, e := range l.events {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out
}

func TestExecuteGetInfo(t *testing.T) {
	dev := testharness.NewMockDevice()
	engine := NewEngine(dev.Channel(), fastConfig(), nil)

	reply, err := engine.Execute(context.Background(), wire.KindGetInfo, nil)
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, wire.KindType0, reply.Kind)
	assert.Equal(t, testharness.Type0Body(testharness.Identity{}), reply.Data)
}

func TestExecuteReadLogbookPage(t *testing.T) {
	page := make([]byte, 64)
	for i := range page {
		page[i] = byte(i)
	}
	dev := testharness.NewMockDevice(page)
	engine := NewEngine(dev.Channel(), fastConfig(), nil)

	reply, err := engine.Execute(context.Background(), wire.KindReadLogbook, []byte{0})
	require.NoError(t, err)
	assert.Equal(t, wire.KindLogbookData, reply.Kind)
	assert.Equal(t, page, dev.Cipher().Decrypt(reply.Data)[:len(page)])
}

func TestExecutePastLastPage(t *testing.T) {
	dev := testharness.NewMockDevice() // no pages at all
	engine := NewEngine(dev.Channel(), fastConfig(), nil)

	reply, err := engine.Execute(context.Background(), wire.KindReadLogbook, []byte{0})
	require.NoError(t, err)
	assert.Equal(t, wire.KindLogbookData, reply.Kind)
	assert.Empty(t, reply.Data)
}

func TestExecuteTimeoutAfterAllAttempts(t *testing.T) {
	dev := testharness.NewMockDevice()
	dev.Mute = true
	ch := dev.Channel()
	logger := &collectLogger{}
	engine := NewEngine(ch, fastConfig(), logger)

	_, err := engine.Execute(context.Background(), wire.KindGetInfo, nil)

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, wire.KindGetInfo, te.RequestKind)
	assert.Equal(t, 3, te.Attempts)

	// Every attempt re-sends the identical request bytes.
	writes := ch.Writes()
	require.Len(t, writes, 3)
	assert.Equal(t, []byte("018080"), writes[0])
	assert.Equal(t, writes[0], writes[1])
	assert.Equal(t, writes[0], writes[2])

	outcomes := logger.byCategory(log.CategoryTransaction)
	require.Len(t, outcomes, 3)
	for i, e := range outcomes {
		assert.Equal(t, "timeout", e.Transaction.Outcome)
		assert.Equal(t, i+1, e.Transaction.Attempt)
	}
}

func TestExecuteRecoversAfterSilentAttempt(t *testing.T) {
	dev := testharness.NewMockDevice()
	calls := 0
	ch := testharness.NewMockChannel(func(req []byte) [][]byte {
		calls++
		if calls == 1 {
			return nil // ignore the first request
		}
		return dev.Respond(req)
	})
	engine := NewEngine(ch, fastConfig(), nil)

	reply, err := engine.Execute(context.Background(), wire.KindGetInfo, nil)
	require.NoError(t, err)
	assert.Equal(t, wire.KindType0, reply.Kind)
	assert.Len(t, ch.Writes(), 2)
}

func TestExecuteNak(t *testing.T) {
	dev := testharness.NewMockDevice()
	dev.NakKinds = []wire.Kind{wire.KindReadLogbook}
	engine := NewEngine(dev.Channel(), fastConfig(), nil)

	_, err := engine.Execute(context.Background(), wire.KindReadLogbook, []byte{0})

	var de *DeviceError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, wire.KindReadLogbook, de.RequestKind)
	assert.Equal(t, byte(testharness.ReasonUnsupported), de.Reason)
}

func TestExecuteUnexpectedReplyKind(t *testing.T) {
	// A device that answers every request with its identity, including
	// requests for logbook data.
	ch := testharness.NewMockChannel(func([]byte) [][]byte {
		reply, err := wire.EncodeReply(wire.KindType0, testharness.Type0Body(testharness.Identity{}))
		require.NoError(t, err)
		return [][]byte{reply}
	})
	engine := NewEngine(ch, fastConfig(), nil)

	_, err := engine.Execute(context.Background(), wire.KindReadLogbook, []byte{0})

	var pe *ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, wire.KindReadLogbook, pe.RequestKind)
	assert.Equal(t, wire.KindType0, pe.GotKind)
}

func TestExecuteBusy(t *testing.T) {
	dev := testharness.NewMockDevice()
	dev.Mute = true
	engine := NewEngine(dev.Channel(), Config{
		ReplyWait:    300 * time.Millisecond,
		MaxAttempts:  1,
		PollInterval: 5 * time.Millisecond,
	}, nil)

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := engine.Execute(context.Background(), wire.KindGetInfo, nil)
		done <- err
	}()

	<-started
	time.Sleep(30 * time.Millisecond)

	_, err := engine.Execute(context.Background(), wire.KindGetInfo, nil)
	assert.ErrorIs(t, err, ErrBusy)

	var te *TimeoutError
	require.ErrorAs(t, <-done, &te)
}

func TestExecuteContextCancelled(t *testing.T) {
	dev := testharness.NewMockDevice()
	dev.Mute = true
	engine := NewEngine(dev.Channel(), Config{
		ReplyWait:    time.Second,
		MaxAttempts:  1,
		PollInterval: 5 * time.Millisecond,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := engine.Execute(ctx, wire.KindGetInfo, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecuteClosed(t *testing.T) {
	dev := testharness.NewMockDevice()
	engine := NewEngine(dev.Channel(), fastConfig(), nil)
	require.NoError(t, engine.Close())

	_, err := engine.Execute(context.Background(), wire.KindGetInfo, nil)
	assert.ErrorIs(t, err, ErrEngineClosed)
}

func TestExecuteNoReplyKind(t *testing.T) {
	dev := testharness.NewMockDevice()
	engine := NewEngine(dev.Channel(), fastConfig(), nil)

	_, err := engine.Execute(context.Background(), wire.Kind(0x42), nil)
	assert.ErrorIs(t, err, ErrNoReplyKind)
}

func TestStaleReplyDrainedBeforeSend(t *testing.T) {
	dev := testharness.NewMockDevice()
	ch := dev.Channel()

	// A leftover identity reply from an abandoned transaction sits in
	// the receive path. It must not satisfy the next request.
	stale, err := wire.EncodeReply(wire.KindType0, testharness.Type0Body(testharness.Identity{}))
	require.NoError(t, err)
	ch.Inject(stale)

	engine := NewEngine(ch, fastConfig(), nil)
	reply, err := engine.Execute(context.Background(), wire.KindReadLogbook, []byte{0})
	require.NoError(t, err)
	assert.Equal(t, wire.KindLogbookData, reply.Kind)
}

func TestNoiseBeforeReplyIsSkipped(t *testing.T) {
	dev := testharness.NewMockDevice()
	ch := testharness.NewMockChannel(func(req []byte) [][]byte {
		replies := dev.Respond(req)
		return append([][]byte{{0x00, 0xF7, 0x13}}, replies...)
	})
	logger := &collectLogger{}
	engine := NewEngine(ch, fastConfig(), logger)

	reply, err := engine.Execute(context.Background(), wire.KindGetInfo, nil)
	require.NoError(t, err)
	assert.Equal(t, wire.KindType0, reply.Kind)
	assert.NotEmpty(t, logger.byCategory(log.CategoryResync))
}

func TestChunkedReplyDelivery(t *testing.T) {
	dev := testharness.NewMockDevice()
	ch := dev.Channel()
	ch.ChunkSize = 3 // dribble the reply out a few bytes per read
	engine := NewEngine(ch, fastConfig(), nil)

	reply, err := engine.Execute(context.Background(), wire.KindGetInfo, nil)
	require.NoError(t, err)
	assert.Equal(t, wire.KindType0, reply.Kind)
}

func TestTimeoutErrorMessage(t *testing.T) {
	err := &TimeoutError{RequestKind: wire.KindGetInfo, Attempts: 3, ReplyWait: 10 * time.Second}
	assert.True(t, err.Timeout())
	assert.Contains(t, err.Error(), "GetInfo")
	assert.Contains(t, err.Error(), "3 attempts")
}

func TestErrorsAreDistinguishable(t *testing.T) {
	var err error = &ProtocolError{RequestKind: wire.KindGetInfo, GotKind: wire.KindNak}
	var pe *ProtocolError
	assert.True(t, errors.As(err, &pe))

	err = &DeviceError{RequestKind: wire.KindGetInfo, Reason: 1}
	var de *DeviceError
	assert.True(t, errors.As(err, &de))
	assert.Contains(t, de.Error(), "0x01")
}
