package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/pdv-engine/internal/application/service"
	"github.com/sangkips/pdv-engine/internal/presentation/http/dto/response"
)

// streamHeartbeat keeps idle SSE connections open through proxies.
const streamHeartbeat = 15 * time.Second

// PrinterHandler handles printer and print queue requests.
type PrinterHandler struct {
	prints *service.PrintQueue
}

// NewPrinterHandler creates a new printer handler.
func NewPrinterHandler(prints *service.PrintQueue) *PrinterHandler {
	return &PrinterHandler{prints: prints}
}

// GetStatus returns the connection status of every device.
func (h *PrinterHandler) GetStatus(c *gin.Context) {
	response.OK(c, "Printer status retrieved", h.prints.Status())
}

// TestPrint queues a test page on a device.
func (h *PrinterHandler) TestPrint(c *gin.Context) {
	job, err := h.prints.EnqueueTestPage(c.Request.Context(), c.Param("device"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, "Test page queued", job)
}

// Jobs returns the known print jobs in enqueue order.
func (h *PrinterHandler) Jobs(c *gin.Context) {
	response.OK(c, "Print jobs retrieved", h.prints.Jobs())
}

// GetJob returns one print job.
func (h *PrinterHandler) GetJob(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	job, err := h.prints.Get(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Print job retrieved", job)
}

// RetryJob requeues a failed job as a new job.
func (h *PrinterHandler) RetryJob(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	job, err := h.prints.Retry(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, "Print job requeued", job)
}

// Stream pushes the job list as server-sent events after every change.
func (h *PrinterHandler) Stream(c *gin.Context) {
	updates, stop := h.prints.Subscribe()
	defer stop()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case jobs, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("jobs", jobs)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}
