package routes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"edu-ai-assistant/internal/config"
	"edu-ai-assistant/internal/logger"
	"edu-ai-assistant/models"
	"edu-ai-assistant/services"
	"edu-ai-assistant/utils"
)

// FileBinder is the file store surface the pdf routes need.
type FileBinder interface {
	Save(ctx context.Context, chatID, filename string, r io.Reader) (*models.StoredFile, error)
	Get(ctx context.Context, chatID string) (*models.StoredFile, error)
}

// Indexer submits a stored PDF to the vector index.
type Indexer interface {
	Index(ctx context.Context, path, fileName string) (int, error)
}

func SetupPdfRoutes(router *gin.Engine, cfg *config.Config, chat ChatStreamer, files FileBinder, indexer Indexer) {
	group := router.Group("/ai/pdf")

	group.GET("/chat", func(c *gin.Context) {
		pdfChat(c, chat)
	})
	group.POST("/chat", func(c *gin.Context) {
		pdfChat(c, chat)
	})

	group.POST("/upload/:chatId", func(c *gin.Context) {
		uploadPdf(c, cfg, files, indexer)
	})

	group.GET("/file/:chatId", func(c *gin.Context) {
		downloadPdf(c, files)
	})
}

func pdfChat(c *gin.Context, chat ChatStreamer) {
	prompt, chatID, ok := chatParams(c)
	if !ok {
		return
	}

	fragments, err := chat.StreamPDFChat(c.Request.Context(), prompt, chatID)
	if errors.Is(err, services.ErrNoFileBound) {
		utils.RespondWithNotFound(c, "No file has been uploaded for this conversation")
		return
	}
	if err != nil {
		logger.Error("PDF chat failed", "chat_id", chatID, "error", err)
		utils.RespondWithInternalError(c, "Failed to start chat", nil)
		return
	}

	streamFragments(c, fragments)
}

func uploadPdf(c *gin.Context, cfg *config.Config, files FileBinder, indexer Indexer) {
	chatID := c.Param("chatId")

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusOK, models.UploadResult{OK: false, Message: "A file part named 'file' is required"})
		return
	}

	// Content-type validation happens before any side effect; a rejected
	// upload saves and indexes nothing.
	if header.Header.Get("Content-Type") != "application/pdf" {
		c.JSON(http.StatusOK, models.UploadResult{OK: false, Message: "Only PDF files are accepted"})
		return
	}
	if header.Size > cfg.MaxFileSize {
		c.JSON(http.StatusOK, models.UploadResult{OK: false, Message: "File exceeds the maximum allowed size"})
		return
	}

	src, err := header.Open()
	if err != nil {
		logger.Error("Failed to open uploaded file", "chat_id", chatID, "error", err)
		c.JSON(http.StatusOK, models.UploadResult{OK: false, Message: "Failed to read uploaded file"})
		return
	}
	defer src.Close()

	ctx := c.Request.Context()
	file, err := files.Save(ctx, chatID, header.Filename, src)
	if err != nil {
		logger.Error("Failed to save uploaded file", "chat_id", chatID, "error", err)
		c.JSON(http.StatusOK, models.UploadResult{OK: false, Message: "Failed to save file"})
		return
	}

	// An indexing failure after a successful save leaves the stored file in
	// place without index entries; the client can re-upload.
	if _, err := indexer.Index(ctx, file.Path, file.Filename); err != nil {
		logger.Error("Failed to index uploaded file", "chat_id", chatID, "file_name", file.Filename, "error", err)
		c.JSON(http.StatusOK, models.UploadResult{OK: false, Message: "Failed to index file"})
		return
	}

	c.JSON(http.StatusOK, models.UploadResult{OK: true})
}

func downloadPdf(c *gin.Context, files FileBinder) {
	chatID := c.Param("chatId")

	file, err := files.Get(c.Request.Context(), chatID)
	if errors.Is(err, services.ErrFileNotFound) {
		utils.RespondWithNotFound(c, "No file has been uploaded for this conversation")
		return
	}
	if err != nil {
		logger.Error("Failed to resolve file", "chat_id", chatID, "error", err)
		utils.RespondWithInternalError(c, "Failed to read file", nil)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+encodeFilename(file.Filename)+`"`)
	c.Header("Content-Type", "application/octet-stream")
	c.File(file.Path)
}

// encodeFilename percent-encodes a filename for the Content-Disposition
// header, so non-ASCII names survive the trip.
func encodeFilename(name string) string {
	return url.PathEscape(name)
}
