package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shaiso/Flowgrid/internal/hub"
)

// Таймауты WebSocket соединения.
const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// API живёт за редактором flow на другом origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamEvents отдаёт поток событий execution по WebSocket.
// GET /api/v1/executions/{id}/events?from_seq=N
//
// Подключившийся клиент получает replay событий с номера from_seq
// (по умолчанию — с начала), затем живой поток. После терминального
// события сервер закрывает соединение нормальным close-фреймом.
// Клиент, переживший разрыв, переподключается с last_seq+1 и не
// теряет ни одного события, пока журнал удерживается hub.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	fromSeq := uint64(1)
	if fromSeqStr := r.URL.Query().Get("from_seq"); fromSeqStr != "" {
		parsed, err := strconv.ParseUint(fromSeqStr, 10, 64)
		if err != nil || parsed == 0 {
			BadRequest(w, "invalid from_seq")
			return
		}
		fromSeq = parsed
	}

	events, cancel, err := h.hub.Subscribe(id, fromSeq)
	if err != nil {
		if errors.Is(err, hub.ErrUnknownExecution) {
			NotFound(w, "execution not found or its event journal expired")
			return
		}
		InternalError(w, h.logger, err)
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам пишет HTTP ошибку клиенту.
		h.logger.Warn("websocket upgrade failed", "execution_id", id, "error", err)
		return
	}
	defer conn.Close()

	h.logger.Info("event stream opened",
		"execution_id", id,
		"from_seq", fromSeq,
		"remote_addr", r.RemoteAddr,
	)

	// Reader нужен только чтобы заметить закрытие со стороны клиента.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(wsPingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-clientGone:
			return

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case ev, ok := <-events:
			if !ok {
				// Журнал закончился: терминальное событие доставлено
				// либо подписчик отброшен как медленный.
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(EventFromDomain(ev)); err != nil {
				h.logger.Warn("event stream write failed",
					"execution_id", id,
					"error", err,
				)
				return
			}
		}
	}
}
