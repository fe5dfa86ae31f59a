package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a plain function, e.g. the NATS connection check.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type SystemHandler struct {
	store   Pinger
	objects Pinger
	events  Pinger
}

func NewSystemHandler(store, objects, events Pinger) *SystemHandler {
	return &SystemHandler{store: store, objects: objects, events: events}
}

func (h *SystemHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *SystemHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	for _, dep := range []struct {
		name string
		p    Pinger
	}{
		{"store", h.store},
		{"minio", h.objects},
		{"nats", h.events},
	} {
		if dep.p == nil {
			continue
		}
		if err := dep.p.Ping(ctx); err != nil {
			checks[dep.name] = err.Error()
			healthy = false
		} else {
			checks[dep.name] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status": map[bool]string{true: "ready", false: "not ready"}[healthy],
		"checks": checks,
	})
}
