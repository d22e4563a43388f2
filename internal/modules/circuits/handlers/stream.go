package handlers

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/blochd/internal/modules/circuits"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamReadTimeout  = 30 * time.Second
)

// streamFrame is one message on the snapshot stream.
type streamFrame struct {
	Type     string      `json:"type"`
	Step     int         `json:"step,omitempty"`
	Total    int         `json:"total,omitempty"`
	Snapshot interface{} `json:"snapshot,omitempty"`
	Cached   bool        `json:"cached,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// HandleStream handles GET /api/circuits/stream. The client upgrades to a
// WebSocket, sends one simulation request, and receives the snapshot
// sequence one frame per step followed by a completion frame.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS is enforced by the HTTP middleware
	})
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")

	ctx := r.Context()

	readCtx, cancelRead := context.WithTimeout(ctx, streamReadTimeout)
	defer cancelRead()

	var req circuits.SimulateRequest
	if err := wsjson.Read(readCtx, conn, &req); err != nil {
		h.log.Debug().Err(err).Msg("Failed to read stream request")
		conn.Close(websocket.StatusInvalidFramePayloadData, "invalid request")
		return
	}

	result, err := h.service.Simulate(req)
	if err != nil {
		h.writeFrame(ctx, conn, streamFrame{Type: "error", Error: err.Error()})
		conn.Close(websocket.StatusNormalClosure, "")
		return
	}

	total := len(result.Snapshots)
	for i, snap := range result.Snapshots {
		frame := streamFrame{
			Type:     "snapshot",
			Step:     i,
			Total:    total,
			Snapshot: snap,
		}
		if !h.writeFrame(ctx, conn, frame) {
			return
		}
	}

	h.writeFrame(ctx, conn, streamFrame{Type: "done", Total: total, Cached: result.Cached})
	conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Handler) writeFrame(ctx context.Context, conn *websocket.Conn, frame streamFrame) bool {
	writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()

	if err := wsjson.Write(writeCtx, conn, frame); err != nil {
		h.log.Debug().Err(err).Msg("Failed to write stream frame")
		return false
	}
	return true
}
