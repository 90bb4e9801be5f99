package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tokengrid/evm-indexer/internal/dispatch"
)

// Handler defines the interface for REST API handlers
// This interface allows for easy mocking and testing
type Handler interface {
	// PubsubCallback accepts one metadata request or an array of them and
	// dispatches each to the resolver
	// POST /pubsub_callback
	PubsubCallback(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	dispatcher *dispatch.Dispatcher
}

// NewHandler creates a new REST API handler backed by the request dispatcher
func NewHandler(d *dispatch.Dispatcher) Handler {
	return &handler{dispatcher: d}
}

// callbackResponse reports one outcome per request item, in request order
type callbackResponse struct {
	Outcomes []dispatch.Outcome `json:"outcomes"`
}

// PubsubCallback decodes the push payload and dispatches every item.
// Item failures are reported in the body; the HTTP status stays 200 as
// long as the payload itself parses.
func (h *handler) PubsubCallback(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		respondBadRequest(c, "Failed to read request body", err.Error())
		return
	}

	requests, err := dispatch.DecodeRequests(payload)
	if err != nil {
		respondBadRequest(c, "Unparsable request payload", err.Error())
		return
	}

	outcomes := h.dispatcher.Dispatch(c.Request.Context(), requests)
	c.JSON(http.StatusOK, callbackResponse{Outcomes: outcomes})
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
