package web

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-facetrack/pkg/hub"
)

const indexHTML = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>facetrack</title></head>
<body style="font-family: monospace; background: #111; color: #ddd">
<img id="cam" width="600" height="600" style="background:#000">
<pre id="status"></pre>
<script>
const base = "ws://" + location.host;
const cam = new WebSocket(base + "/ws/camera");
cam.binaryType = "blob";
cam.onmessage = (e) => {
  const url = URL.createObjectURL(e.data);
  const img = document.getElementById("cam");
  img.onload = () => URL.revokeObjectURL(url);
  img.src = url;
};
const st = new WebSocket(base + "/ws/status");
st.onmessage = (e) => {
  document.getElementById("status").textContent = JSON.stringify(JSON.parse(e.data), null, 2);
};
</script>
</body>
</html>
`

// handleIndex serves a minimal viewer page
func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html")
	return c.SendString(indexHTML)
}

// handleStatus returns the current status snapshot
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.Status())
}

// handleConfig returns the effective tracking config
func (s *Server) handleConfig(c *fiber.Ctx) error {
	return c.JSON(s.view)
}

// handleStatusWS sends the current status, then one report per frame
func (s *Server) handleStatusWS(c *websocket.Conn) {
	if data, err := json.Marshal(s.Status()); err == nil {
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	hub.NewClient(s.statusHub, c).Run()
}

// handleCameraWS streams JPEG frames
func (s *Server) handleCameraWS(c *websocket.Conn) {
	hub.NewClient(s.cameraHub, c).Run()
}
