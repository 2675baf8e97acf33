package dispatch

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/rlog"
)

// mcpUpgrader upgrades the reserved MCP endpoint; CheckOrigin is permissive
// since this stub never does anything beyond rejecting the session (§4.11
// "MCP is reserved but not implemented in the core").
var mcpUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// MCPNotImplementedHandler serves the reserved MCP sub-protocol's HTTP
// upgrade point: it accepts the WebSocket handshake, sends a single
// "not implemented" text frame, and closes. A real MCP implementation is
// out of scope (§4.11); this exists only so a client probing for the
// endpoint gets a defined response instead of a connection refused.
func MCPNotImplementedHandler(log *rlog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := mcpUpgrader.Upgrade(w, r, nil)
		if err != nil {
			if log != nil {
				log.Warn("MCP upgrade from %s failed: %v", r.RemoteAddr, err)
			}
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte("MCP not implemented"))
		if log != nil {
			log.Info("MCP probe from %s answered with not-implemented stub", r.RemoteAddr)
		}
	}
}
