package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/TechnicallyShaun/askollama/internal/screenshot"
	"github.com/TechnicallyShaun/askollama/internal/screenshot/client"
	"github.com/TechnicallyShaun/askollama/internal/screenshot/logging"
	"github.com/TechnicallyShaun/askollama/internal/screenshot/pubsub"
)

// Handler handles HTTP requests for the control API.
type Handler struct {
	backend   Backend
	logger    *logging.FileLogger
	heartbeat time.Duration
}

// NewHandler creates a new API handler.
func NewHandler(backend Backend, logger *logging.FileLogger) *Handler {
	return &Handler{backend: backend, logger: logger, heartbeat: DefaultHeartbeat}
}

// ExplainRequest is the body of POST /explain.
type ExplainRequest struct {
	Text   string `json:"text"`
	Prompt string `json:"prompt"`
}

// ExplainResponse is returned by POST /explain.
type ExplainResponse struct {
	ID          string `json:"id"`
	Explanation string `json:"explanation"`
}

// GetSettings returns the current settings.
func (h *Handler) GetSettings(c *fiber.Ctx) error {
	return c.JSON(h.backend.Settings().Get())
}

// PutSettings replaces the current settings. Omitted fields take their
// defaults; the watch directory is not validated.
func (h *Handler) PutSettings(c *fiber.Ctx) error {
	settings := screenshot.DefaultSettings()
	if err := json.Unmarshal(c.Body(), &settings); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid settings: "+err.Error())
	}

	h.backend.Settings().Set(settings)
	h.logger.Info("settings updated",
		logging.Bool("auto_explain", settings.AutoExplain),
		logging.Bool("watch_dir_override", settings.WatchDir != nil),
	)
	return c.JSON(h.backend.Settings().Get())
}

// SaveSettings persists the current settings.
func (h *Handler) SaveSettings(c *fiber.Ctx) error {
	if err := h.backend.SaveSettings(); err != nil {
		return err
	}
	return c.JSON(h.backend.Settings().Get())
}

// ReloadSettings replaces the current settings with the persisted ones.
func (h *Handler) ReloadSettings(c *fiber.Ctx) error {
	settings, err := h.backend.ReloadSettings()
	if err != nil {
		return err
	}
	return c.JSON(settings)
}

// Explain explains arbitrary text with an optional user prompt and publishes
// the result like an automatic explanation.
func (h *Handler) Explain(c *fiber.Ctx) error {
	var req ExplainRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request: "+err.Error())
	}
	if strings.TrimSpace(req.Text) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "text is required")
	}

	explanation, err := h.backend.Explainer().Explain(c.UserContext(), req.Text, req.Prompt)
	if err != nil {
		h.logger.Error("explanation failed", err)
		return explainError(err)
	}

	id := uuid.NewString()
	h.backend.Broker().Publish(pubsub.Event{
		ID:      id,
		Topic:   pubsub.TopicExplanation,
		Payload: explanation.Text,
	})

	return c.JSON(ExplainResponse{ID: id, Explanation: explanation.Text})
}

// explainError maps explanation failures to gateway statuses.
func explainError(err error) error {
	var svcErr *client.ServiceError
	switch {
	case errors.Is(err, client.ErrConnectionFailed):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	case errors.As(err, &svcErr):
		return fiber.NewError(fiber.StatusBadGateway,
			fmt.Sprintf("explanation service returned status %d", svcErr.StatusCode))
	default:
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
}

// Events streams published results as server-sent events. The optional
// topic query parameter is a comma-separated topic filter.
func (h *Handler) Events(c *fiber.Ctx) error {
	var topics []string
	for _, t := range strings.Split(c.Query("topic"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}

	events, cancel := h.backend.Broker().Subscribe(pubsub.DefaultBuffer, topics...)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	heartbeat := h.heartbeat
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := writeEvent(w, ev); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})
	return nil
}

func writeEvent(w *bufio.Writer, ev pubsub.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ev.ID, ev.Topic, data); err != nil {
		return err
	}
	return w.Flush()
}
