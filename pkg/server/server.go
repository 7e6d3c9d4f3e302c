package server

import (
	"log"
	"net/http"

	"studylogbot/pkg/fsm"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Server exposes the single webhook endpoint. Each POST carries one Telegram
// update; processing is synchronous so the delivery acknowledgement only goes
// out after the transition is persisted.
type Server struct {
	engine      *fsm.Engine
	webhookPath string
}

func New(engine *fsm.Engine, webhookPath string) *Server {
	return &Server{
		engine:      engine,
		webhookPath: webhookPath,
	}
}

// Router builds the gin engine. POST handles updates and always acknowledges
// with 200 "OK"; any other verb gets the fixed liveness response; an
// unhandled panic surfaces as 500 via the recovery middleware.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Any(s.webhookPath, func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.JSON(http.StatusOK, gin.H{"status": "Study Bot is active"})
			return
		}
		s.handleWebhook(c)
	})

	return router
}

func (s *Server) handleWebhook(c *gin.Context) {
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		// Malformed payloads are acknowledged so the transport stops
		// redelivering them.
		log.Printf("[handleWebhook] Error decoding update: %v", err)
		c.String(http.StatusOK, "OK")
		return
	}

	s.engine.HandleUpdate(c.Request.Context(), update)
	c.String(http.StatusOK, "OK")
}
