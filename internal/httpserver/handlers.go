// Package httpserver bridges the app UI to the check-in orchestrator over a
// small JSON control surface.
package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/seanesla/kanari-sub005/internal/audio"
	"github.com/seanesla/kanari-sub005/internal/live"
	"github.com/seanesla/kanari-sub005/internal/session"
)

type Handlers struct {
	Orch *session.Orchestrator
}

func NewHandlers(orch *session.Orchestrator) Handlers {
	return Handlers{Orch: orch}
}

func (h Handlers) Register(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.POST("/checkin/start", h.start)
	e.POST("/checkin/end", h.end)
	e.POST("/checkin/cancel", h.cancel)
	e.POST("/checkin/interrupt", h.interrupt)
	e.POST("/checkin/text", h.text)
	e.POST("/checkin/mute", h.mute)
	e.POST("/checkin/tool", h.tool)
	e.POST("/checkin/preserve", h.preserve)
	e.GET("/checkin/state", h.state)
}

type startRequest struct {
	// UserGesture asserts the request came from a direct user action; device
	// acquisition is refused without it.
	UserGesture bool `json:"userGesture"`
	Resume      bool `json:"resume"`
}

func (h Handlers) start(c echo.Context) error {
	var req startRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody(err))
	}
	err := h.Orch.StartSession(c.Request().Context(), session.StartOptions{
		UserGesture: req.UserGesture,
		Resume:      req.Resume,
	})
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, h.stateBody())
	case errors.Is(err, session.ErrNoUserGesture):
		return c.JSON(http.StatusForbidden, errBody(err))
	case errors.Is(err, audio.ErrPermission):
		// expected decline, the UI prompts and retries
		return c.JSON(http.StatusConflict, errBody(err))
	default:
		var ce *live.ConnectError
		if errors.As(err, &ce) {
			return c.JSON(http.StatusBadGateway, errBody(err))
		}
		return c.JSON(http.StatusInternalServerError, errBody(err))
	}
}

func (h Handlers) end(c echo.Context) error {
	if err := h.Orch.EndSession(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, errBody(err))
	}
	return c.JSON(http.StatusOK, h.stateBody())
}

func (h Handlers) cancel(c echo.Context) error {
	if err := h.Orch.CancelSession(); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return c.JSON(http.StatusConflict, errBody(err))
		}
		return c.JSON(http.StatusInternalServerError, errBody(err))
	}
	return c.JSON(http.StatusOK, h.stateBody())
}

func (h Handlers) interrupt(c echo.Context) error {
	if err := h.Orch.InterruptAssistant(); err != nil {
		if errors.Is(err, session.ErrNotInterruptible) {
			return c.JSON(http.StatusConflict, errBody(err))
		}
		return c.JSON(http.StatusInternalServerError, errBody(err))
	}
	return c.JSON(http.StatusOK, h.stateBody())
}

type textRequest struct {
	Text string `json:"text"`
}

func (h Handlers) text(c echo.Context) error {
	var req textRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody(err))
	}
	if err := h.Orch.SendTextMessage(req.Text); err != nil {
		switch {
		case errors.Is(err, session.ErrTextNotAllowed):
			return c.JSON(http.StatusConflict, errBody(err))
		case errors.Is(err, session.ErrNoSession):
			return c.JSON(http.StatusConflict, errBody(err))
		}
		return c.JSON(http.StatusInternalServerError, errBody(err))
	}
	return c.JSON(http.StatusOK, h.stateBody())
}

func (h Handlers) mute(c echo.Context) error {
	muted, err := h.Orch.ToggleMute()
	if err != nil {
		return c.JSON(http.StatusConflict, errBody(err))
	}
	return c.JSON(http.StatusOK, map[string]any{"muted": muted})
}

type toolRequest struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

func (h Handlers) tool(c echo.Context) error {
	var req toolRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody(err))
	}
	w := h.Orch.TriggerManualTool(req.Name, req.Args)
	if w == nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{"error": "unknown tool"})
	}
	return c.JSON(http.StatusOK, w)
}

func (h Handlers) preserve(c echo.Context) error {
	if err := h.Orch.Preserve(c.Request().Context()); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return c.JSON(http.StatusConflict, errBody(err))
		}
		return c.JSON(http.StatusInternalServerError, errBody(err))
	}
	return c.JSON(http.StatusOK, h.stateBody())
}

func (h Handlers) state(c echo.Context) error {
	body := h.stateBody()
	body["hasPreserved"] = h.Orch.HasPreserved(c.Request().Context())
	if sess := h.Orch.Snapshot(); sess != nil {
		body["session"] = sess
	}
	return c.JSON(http.StatusOK, body)
}

func (h Handlers) stateBody() map[string]any {
	return map[string]any{
		"state": h.Orch.State(),
		"phase": h.Orch.Phase(),
	}
}

func errBody(err error) map[string]any {
	return map[string]any{"error": err.Error()}
}
