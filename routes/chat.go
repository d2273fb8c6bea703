package routes

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"edu-ai-assistant/internal/ai"
	"edu-ai-assistant/internal/logger"
	"edu-ai-assistant/models"
	"edu-ai-assistant/utils"
)

// ChatStreamer is the orchestrator surface the chat routes need.
type ChatStreamer interface {
	StreamServiceChat(ctx context.Context, prompt, chatID string) (<-chan ai.Fragment, error)
	StreamPDFChat(ctx context.Context, prompt, chatID string) (<-chan ai.Fragment, error)
}

// ChannelLister lists recorded conversation ids per channel.
type ChannelLister interface {
	ChatIDs(ctx context.Context, channel string) ([]string, error)
}

func SetupChatRoutes(router *gin.Engine, chat ChatStreamer, conversations ChannelLister) {
	group := router.Group("/ai")

	group.GET("/service", func(c *gin.Context) {
		serviceChat(c, chat)
	})
	group.POST("/service", func(c *gin.Context) {
		serviceChat(c, chat)
	})

	group.GET("/history/:type", func(c *gin.Context) {
		channel := c.Param("type")
		if channel != models.ChannelService && channel != models.ChannelPDF {
			utils.RespondWithBadRequest(c, "Unknown chat channel", gin.H{"type": channel})
			return
		}

		ids, err := conversations.ChatIDs(c.Request.Context(), channel)
		if err != nil {
			logger.Error("Failed to list conversations", "channel", channel, "error", err)
			utils.RespondWithInternalError(c, "Failed to list conversations", nil)
			return
		}
		c.JSON(http.StatusOK, ids)
	})
}

func serviceChat(c *gin.Context, chat ChatStreamer) {
	prompt, chatID, ok := chatParams(c)
	if !ok {
		return
	}

	fragments, err := chat.StreamServiceChat(c.Request.Context(), prompt, chatID)
	if err != nil {
		logger.Error("Service chat failed", "chat_id", chatID, "error", err)
		utils.RespondWithInternalError(c, "Failed to start chat", nil)
		return
	}

	streamFragments(c, fragments)
}

// chatParams reads prompt and chatId from query or form, whichever is set.
func chatParams(c *gin.Context) (prompt, chatID string, ok bool) {
	prompt = firstNonEmpty(c.Query("prompt"), c.PostForm("prompt"))
	chatID = firstNonEmpty(c.Query("chatId"), c.PostForm("chatId"))

	if prompt == "" || chatID == "" {
		utils.RespondWithBadRequest(c, "prompt and chatId are required", nil)
		return "", "", false
	}
	return prompt, chatID, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// streamFragments forwards model output to the client as it arrives. The
// response is flushed per fragment; when the client disconnects gin stops
// calling the step function and the request context cancels the upstream
// stream. A mid-stream upstream error just terminates the body, preserving
// whatever was already sent.
func streamFragments(c *gin.Context, fragments <-chan ai.Fragment) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)

	c.Stream(func(w io.Writer) bool {
		fragment, open := <-fragments
		if !open {
			return false
		}
		if fragment.Err != nil {
			logger.Error("Upstream stream terminated", "error", fragment.Err)
			return false
		}
		io.WriteString(w, fragment.Text)
		return true
	})
}
