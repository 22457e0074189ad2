package web

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-signspeak/pkg/camera"
	"github.com/teslashibe/go-signspeak/pkg/hub"
	"github.com/teslashibe/go-signspeak/pkg/session"
)

// ViewMessage is the transcript feed payload.
type ViewMessage struct {
	Type string `json:"type"`
	session.View
}

func newViewMessage(v session.View) ViewMessage {
	return ViewMessage{Type: "transcript", View: v}
}

// Command is a control message sent over /ws/transcript.
type Command struct {
	Action string `json:"action"`
}

// actionFor maps a command name to a session action.
func actionFor(name string) (session.Action, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "undo":
		return session.Undo{}, true
	case "toggle", "record":
		return session.ToggleActive{}, true
	case "flip":
		return session.FlipFacing{}, true
	case "reset":
		return session.Reset{}, true
	}
	return nil, false
}

// handleStatus returns the service status. It answers even when camera
// access was denied.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	if s.status != nil {
		return c.JSON(s.status())
	}
	return c.JSON(fiber.Map{
		"permission": s.currentPermission(),
		"state":      s.store.State(),
	})
}

// handleTranscript returns the current view.
func (s *Server) handleTranscript(c *fiber.Ctx) error {
	return c.JSON(s.store.View())
}

func (s *Server) dispatch(c *fiber.Ctx, a session.Action) error {
	effect := s.store.Dispatch(a)
	s.logger.Debug("action", "action", a.Name(), "effect", effect.String())
	return c.JSON(s.store.View())
}

// handleUndo removes the last word.
func (s *Server) handleUndo(c *fiber.Ctx) error {
	return s.dispatch(c, session.Undo{})
}

// handleReset clears the transcript.
func (s *Server) handleReset(c *fiber.Ctx) error {
	return s.dispatch(c, session.Reset{})
}

// handleToggle flips the recording flag.
func (s *Server) handleToggle(c *fiber.Ctx) error {
	return s.dispatch(c, session.ToggleActive{})
}

// handleFlip switches between back and front cameras.
func (s *Server) handleFlip(c *fiber.Ctx) error {
	return s.dispatch(c, session.FlipFacing{})
}

// handleGetCameraConfig returns the current camera tuning.
func (s *Server) handleGetCameraConfig(c *fiber.Ctx) error {
	if s.cameras == nil {
		return fiber.NewError(fiber.StatusNotFound, "camera config not available")
	}
	return c.JSON(s.cameras.GetConfigJSON())
}

// handleUpdateCameraConfig applies a partial camera config update.
func (s *Server) handleUpdateCameraConfig(c *fiber.Ctx) error {
	if s.cameras == nil {
		return fiber.NewError(fiber.StatusNotFound, "camera config not available")
	}

	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body: "+err.Error())
	}
	if err := s.cameras.UpdateConfig(params); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	s.logger.Info("camera config updated", "params", params)
	return c.JSON(s.cameras.GetConfigJSON())
}

// handleListPresets returns the camera preset names.
func (s *Server) handleListPresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"presets": camera.PresetNames()})
}

// handleTranscriptWS streams the view and accepts commands.
func (s *Server) handleTranscriptWS(c *websocket.Conn) {
	client, err := hub.NewClient(s.transcriptHub, c)
	if err != nil {
		return
	}
	client.Run()
}

// handleCameraWS streams preview frames. Each connection counts as a viewer.
func (s *Server) handleCameraWS(c *websocket.Conn) {
	client, err := hub.NewClient(s.cameraHub, c)
	if err != nil {
		return
	}
	client.Run()
}

func (s *Server) greeting() (hub.Message, bool) {
	data, err := json.Marshal(newViewMessage(s.store.View()))
	if err != nil {
		return hub.Message{}, false
	}
	return hub.Text(data), true
}

func (s *Server) handleCommand(c *hub.Client, data []byte) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		cmd.Action = string(data)
	}

	a, ok := actionFor(cmd.Action)
	if !ok {
		reply, _ := json.Marshal(fiber.Map{"type": "error", "error": "unknown action: " + cmd.Action})
		c.Reply(hub.Text(reply))
		return
	}

	effect := s.store.Dispatch(a)
	s.logger.Debug("ws action", "action", a.Name(), "effect", effect.String())
	if effect != session.EffectChanged {
		// Nothing broadcast; answer the sender directly.
		reply, _ := json.Marshal(newViewMessage(s.store.View()))
		c.Reply(hub.Text(reply))
	}
}
