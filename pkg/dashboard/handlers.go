package dashboard

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-blindaid/pkg/hub"
	"github.com/teslashibe/go-blindaid/pkg/settings"
)

// ActionResponse is returned by the start, stop and calibration endpoints.
type ActionResponse struct {
	Status Status `json:"status"`
	Hint   string `json:"hint,omitempty"`
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, ErrAlreadyRunning), errors.Is(err, ErrNotRunning):
		code = fiber.StatusConflict
	case errors.Is(err, ErrNoPreview):
		code = fiber.StatusNotFound
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// handleStatus returns the detection process state
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.sup.Status())
}

func (s *Server) handleStart(c *fiber.Ctx) error {
	st, err := s.sup.Start(s.processContext())
	if err != nil {
		return err
	}
	return c.JSON(ActionResponse{Status: st})
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	if err := s.sup.Stop(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(ActionResponse{Status: s.sup.Status()})
}

// handleCalibration makes sure the detection process is up. Calibration
// itself is requested by voice once its window is showing.
func (s *Server) handleCalibration(c *fiber.Ctx) error {
	st, err := s.sup.Start(s.processContext())
	if err != nil && !errors.Is(err, ErrAlreadyRunning) {
		return err
	}
	return c.JSON(ActionResponse{Status: st, Hint: CalibrationHint})
}

func (s *Server) handleGetSettings(c *fiber.Ctx) error {
	st, err := settings.Load(s.cfg.SettingsPath)
	if err != nil {
		return err
	}
	return c.JSON(st)
}

// handlePutSettings merges the body over the stored settings, validates and
// saves. A running detection process picks the file up on its own.
func (s *Server) handlePutSettings(c *fiber.Ctx) error {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()

	st, err := settings.Load(s.cfg.SettingsPath)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(c.Body(), &st); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid settings: "+err.Error())
	}
	if err := st.Validate(); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	if err := settings.Save(s.cfg.SettingsPath, st); err != nil {
		return err
	}
	s.logger.Info("settings saved", "path", s.cfg.SettingsPath)
	return c.JSON(st)
}

// handleGetLogs returns the newest output lines, 25 unless ?n= says
// otherwise.
func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	n := c.QueryInt("n", s.cfg.LogTail)
	return c.JSON(s.sup.Logs(n))
}

func (s *Server) handlePreview(c *fiber.Ctx) error {
	if s.cfg.Preview == nil {
		return ErrNoPreview
	}
	if s.sup.Status().Running {
		return fiber.NewError(fiber.StatusConflict, "camera in use by the detection process")
	}
	jpeg, err := s.cfg.Preview()
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(jpeg)
}

// handleLogsWS replays the recent tail, then streams live lines.
func (s *Server) handleLogsWS(conn *websocket.Conn) {
	// Subscribe before taking the tail so no line falls between the two.
	// A line in both arrives twice with the same Seq.
	client := hub.NewClient(s.logHub, conn)
	if client == nil {
		return
	}
	for _, line := range s.sup.Logs(s.cfg.LogTail) {
		ev := hub.LogEvent(line.RunID, line.Stream, line.Text, line.Time)
		ev.Seq = line.Seq
		if err := conn.WriteJSON(ev); err != nil {
			client.Close()
			return
		}
	}
	client.Run()
}
