package log

import (
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent(category Category) Event {
	e := Event{
		Timestamp: time.Now(),
		SessionID: "11111111-2222-3333-4444-555555555555",
		Direction: DirectionIn,
		Layer:     LayerWire,
		Category:  category,
		Port:      "/dev/ttyUSB0",
	}
	switch category {
	case CategoryFrame:
		e.Frame = &FrameEvent{Kind: 0x00, KindName: "Type0", Size: 32, Data: []byte{0x1E, 0x00}}
	case CategoryTransaction:
		e.Transaction = &TransactionEvent{RequestKind: 0x80, Attempt: 1, MaxAttempts: 3, Outcome: "ok"}
	case CategoryState:
		e.StateChange = &StateChangeEvent{OldState: "disconnected", NewState: "identifying"}
	case CategoryResync:
		e.Resync = &ResyncEvent{Skipped: 5, Reason: "checksum mismatch"}
	case CategoryError:
		e.Error = &ErrorEventData{Phase: "handshake", Message: "timed out"}
	}
	return e
}

func TestEncodeDecodeEvent_RoundTrip(t *testing.T) {
	for _, cat := range []Category{CategoryFrame, CategoryTransaction, CategoryState, CategoryResync, CategoryError} {
		t.Run(cat.String(), func(t *testing.T) {
			original := sampleEvent(cat)

			data, err := EncodeEvent(original)
			require.NoError(t, err)

			decoded, err := DecodeEvent(data)
			require.NoError(t, err)

			assert.Equal(t, original.SessionID, decoded.SessionID)
			assert.Equal(t, original.Category, decoded.Category)
			assert.WithinDuration(t, original.Timestamp, decoded.Timestamp, time.Millisecond)
		})
	}
}

func TestFileLogger_WriteAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.nlog")

	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	logger.Log(sampleEvent(CategoryFrame))
	logger.Log(sampleEvent(CategoryTransaction))
	logger.Log(sampleEvent(CategoryState))
	require.NoError(t, logger.Close())

	reader, err := NewReader(path)
	require.NoError(t, err)
	defer reader.Close()

	events, err := reader.All()
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, CategoryFrame, events[0].Category)
	assert.Equal(t, CategoryTransaction, events[1].Category)
	assert.Equal(t, CategoryState, events[2].Category)
}

func TestFileLogger_CloseTwiceAndLogAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.nlog")

	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())

	// Must not panic or write.
	logger.Log(sampleEvent(CategoryFrame))

	reader, err := NewReader(path)
	require.NoError(t, err)
	defer reader.Close()
	events, err := reader.All()
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFileLogger_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.nlog")

	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				logger.Log(sampleEvent(CategoryFrame))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, logger.Close())

	reader, err := NewReader(path)
	require.NoError(t, err)
	defer reader.Close()
	events, err := reader.All()
	require.NoError(t, err)
	assert.Len(t, events, 200)
}

func TestFilteredReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.nlog")

	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	logger.Log(sampleEvent(CategoryFrame))
	logger.Log(sampleEvent(CategoryError))
	logger.Log(sampleEvent(CategoryFrame))
	require.NoError(t, logger.Close())

	cat := CategoryError
	reader, err := NewFilteredReader(path, Filter{Category: &cat})
	require.NoError(t, err)
	defer reader.Close()

	event, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, CategoryError, event.Category)
	assert.Equal(t, "handshake", event.Error.Phase)

	_, err = reader.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestMultiLogger(t *testing.T) {
	var a, b recorder
	m := NewMultiLogger(&a, &b)
	m.Log(sampleEvent(CategoryState))
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestOrNoop(t *testing.T) {
	assert.NotNil(t, OrNoop(nil))
	r := &recorder{}
	assert.Equal(t, Logger(r), OrNoop(r))
}

func TestTruncateFrameData(t *testing.T) {
	small := make([]byte, 16)
	out, truncated := TruncateFrameData(small)
	assert.False(t, truncated)
	assert.Len(t, out, 16)

	big := make([]byte, MaxFrameDataSize+100)
	out, truncated = TruncateFrameData(big)
	assert.True(t, truncated)
	assert.Len(t, out, MaxFrameDataSize)
}

// recorder is a Logger that remembers events, for tests.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Log(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}
