package stream

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{}

// abruptThenCleanServer первым подключением отдаёт события 1..3 и
// рвёт соединение; вторым — отдаёт события с запрошенного from_seq
// до 5 и закрывается нормально.
func abruptThenCleanServer(t *testing.T, execID uuid.UUID, dials *atomic.Int32) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		attempt := dials.Add(1)

		fromSeq := uint64(1)
		if s := r.URL.Query().Get("from_seq"); s != "" {
			parsed, _ := strconv.ParseUint(s, 10, 64)
			fromSeq = parsed
		}

		if attempt == 1 {
			for seq := fromSeq; seq <= 3; seq++ {
				conn.WriteJSON(Event{
					Type:        "node_log",
					ExecutionID: execID,
					Sequence:    seq,
				})
			}
			// Обрыв без close-фрейма.
			return
		}

		if fromSeq != 4 {
			t.Errorf("expected reconnect with from_seq=4, got %d", fromSeq)
		}
		for seq := fromSeq; seq <= 5; seq++ {
			conn.WriteJSON(Event{
				Type:        "node_log",
				ExecutionID: execID,
				Sequence:    seq,
			})
		}
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
}

func TestClient_WatchReconnectsWithoutGaps(t *testing.T) {
	execID := uuid.New()
	var dials atomic.Int32

	srv := httptest.NewServer(abruptThenCleanServer(t, execID, &dials))
	defer srv.Close()

	client := NewClient(srv.URL, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var got []uint64
	err := client.Watch(ctx, execID, func(ev Event) {
		got = append(got, ev.Sequence)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []uint64{1, 2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("expected sequences %v, got %v", want, got)
	}
	for i, seq := range want {
		if got[i] != seq {
			t.Errorf("position %d: expected %d, got %d", i, seq, got[i])
		}
	}

	if dials.Load() != 2 {
		t.Errorf("expected exactly 2 connections, got %d", dials.Load())
	}
}

func TestClient_WatchCancelled(t *testing.T) {
	execID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// Держим соединение открытым без событий.
		conn.ReadMessage()
	}))
	defer srv.Close()

	client := NewClient(srv.URL, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	err := client.Watch(ctx, execID, func(Event) {})
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestClient_WatchOnceReleasesGoroutine(t *testing.T) {
	execID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteJSON(Event{Type: "node_log", ExecutionID: execID, Sequence: 1})
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, slog.Default())

	// Контекст живёт дольше подключения: сторожевая горутина
	// должна выйти вместе с watchOnce, а не висеть до отмены.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	before := runtime.NumGoroutine()

	for i := 0; i < 10; i++ {
		var lastSeq uint64
		done, err := client.watchOnce(ctx, execID, &lastSeq, func(Event) {})
		if !done || err != nil {
			t.Fatalf("attempt %d: done=%v err=%v", i, done, err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= before+1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("goroutines grew from %d to %d after 10 connections",
		before, runtime.NumGoroutine())
}
