package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mfeed/internal/model"
	"github.com/xxxsen/mfeed/internal/pkg/response"
)

type MutationHandler interface {
	Handle(ctx context.Context, ev model.MutationEvent) error
}

// EventHandler receives mutation notices. The token identity is always the
// actor of the event.
type EventHandler struct {
	events MutationHandler
}

func NewEventHandler(events MutationHandler) *EventHandler {
	return &EventHandler{events: events}
}

type eventRequest struct {
	TargetID string `json:"target_id"`
}

func (h *EventHandler) Follow(c *gin.Context)  { h.handle(c, model.EventFollow) }
func (h *EventHandler) Block(c *gin.Context)   { h.handle(c, model.EventBlock) }
func (h *EventHandler) Post(c *gin.Context)    { h.handle(c, model.EventPost) }
func (h *EventHandler) Privacy(c *gin.Context) { h.handle(c, model.EventPrivacy) }

func (h *EventHandler) handle(c *gin.Context, kind model.EventKind) {
	var req eventRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidRequest(c, "invalid request")
			return
		}
	}
	ev := model.MutationEvent{Kind: kind, ActorID: getIdentityID(c), TargetID: req.TargetID}
	if err := h.events.Handle(c.Request.Context(), ev); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
