package hub

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Flowgrid/internal/domain"
)

func publishN(h *Hub, execID uuid.UUID, n int) {
	for i := 0; i < n; i++ {
		h.Publish(&domain.Event{
			ExecutionID: execID,
			Kind:        domain.EventNodeLog,
			Message:     "line",
		})
	}
}

func TestHub_SequencesAreMonotonic(t *testing.T) {
	h := New(Config{})
	execID := uuid.New()

	publishN(h, execID, 5)

	events, err := h.Events(execID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.Sequence != uint64(i+1) {
			t.Errorf("event %d: expected sequence %d, got %d", i, i+1, ev.Sequence)
		}
	}
}

func TestHub_IndependentStreams(t *testing.T) {
	h := New(Config{})
	first := uuid.New()
	second := uuid.New()

	publishN(h, first, 3)
	publishN(h, second, 1)

	events, _ := h.Events(second, 1)
	if len(events) != 1 || events[0].Sequence != 1 {
		t.Errorf("second stream should start at sequence 1, got %+v", events)
	}
}

func TestHub_SubscribeReplayThenLive(t *testing.T) {
	h := New(Config{})
	execID := uuid.New()

	publishN(h, execID, 3)

	ch, cancel, err := h.Subscribe(execID, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel()

	// Replay: события 2 и 3.
	for _, want := range []uint64{2, 3} {
		ev := <-ch
		if ev.Sequence != want {
			t.Errorf("expected sequence %d, got %d", want, ev.Sequence)
		}
	}

	// Живое событие приходит следом, без пропуска.
	publishN(h, execID, 1)
	select {
	case ev := <-ch:
		if ev.Sequence != 4 {
			t.Errorf("expected sequence 4, got %d", ev.Sequence)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for live event")
	}
}

func TestHub_SubscribeUnknownExecution(t *testing.T) {
	h := New(Config{})

	_, _, err := h.Subscribe(uuid.New(), 1)
	if !errors.Is(err, ErrUnknownExecution) {
		t.Errorf("expected ErrUnknownExecution, got %v", err)
	}
}

func TestHub_TerminalEventClosesSubscribers(t *testing.T) {
	h := New(Config{})
	execID := uuid.New()

	publishN(h, execID, 1)
	ch, cancel, err := h.Subscribe(execID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel()

	h.Publish(&domain.Event{ExecutionID: execID, Kind: domain.EventExecutionCompleted})

	var got []uint64
	for ev := range ch {
		got = append(got, ev.Sequence)
	}
	// Журнал доставлен целиком, канал закрыт терминальным событием.
	if len(got) != 2 || got[1] != 2 {
		t.Errorf("expected sequences [1 2] then close, got %v", got)
	}
}

func TestHub_SubscribeAfterTerminal(t *testing.T) {
	h := New(Config{})
	execID := uuid.New()

	publishN(h, execID, 2)
	h.Publish(&domain.Event{ExecutionID: execID, Kind: domain.EventExecutionFailed})

	// Поздний подписчик получает полный replay и закрытый канал.
	ch, _, err := h.Subscribe(execID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var kinds []domain.EventKind
	for ev := range ch {
		kinds = append(kinds, ev.Kind)
	}
	if len(kinds) != 3 || kinds[2] != domain.EventExecutionFailed {
		t.Errorf("unexpected replay: %v", kinds)
	}
}

func TestHub_SlowSubscriberDropped(t *testing.T) {
	h := New(Config{BufferSize: 2})
	execID := uuid.New()

	publishN(h, execID, 1)
	ch, cancel, err := h.Subscribe(execID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel()

	// Буфер: 1 replay + 2 живых. Четвёртое событие не помещается,
	// подписчик отбрасывается.
	publishN(h, execID, 3)

	var got []uint64
	for ev := range ch {
		got = append(got, ev.Sequence)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 buffered events before drop, got %v", got)
	}

	// Переподписка с последнего увиденного номера закрывает разрыв.
	ch2, cancel2, err := h.Subscribe(execID, got[len(got)-1]+1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel2()

	ev := <-ch2
	if ev.Sequence != 4 {
		t.Errorf("expected sequence 4 after resubscribe, got %d", ev.Sequence)
	}
}

func TestHub_RetentionExpires(t *testing.T) {
	h := New(Config{Retention: 20 * time.Millisecond})
	execID := uuid.New()

	publishN(h, execID, 1)
	h.Publish(&domain.Event{ExecutionID: execID, Kind: domain.EventExecutionCompleted})

	time.Sleep(100 * time.Millisecond)

	if _, err := h.Events(execID, 1); !errors.Is(err, ErrUnknownExecution) {
		t.Errorf("expected journal to expire, got %v", err)
	}
}

func TestHub_SubscribeAfterRegisterBeforeFirstEvent(t *testing.T) {
	h := New(Config{})
	execID := uuid.New()

	// Поток заведён при допуске, событий ещё нет: подписка
	// проходит и получает живые события с первого номера.
	h.Register(execID)

	events, cancel, err := h.Subscribe(execID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel()

	publishN(h, execID, 2)

	for want := uint64(1); want <= 2; want++ {
		select {
		case ev := <-events:
			if ev.Sequence != want {
				t.Errorf("expected sequence %d, got %d", want, ev.Sequence)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", want)
		}
	}
}

func TestHub_RegisterIsIdempotent(t *testing.T) {
	h := New(Config{})
	execID := uuid.New()

	h.Register(execID)
	publishN(h, execID, 3)
	h.Register(execID)

	events, err := h.Events(execID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected journal to survive re-register, got %d events", len(events))
	}
}
