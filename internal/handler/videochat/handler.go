package videochat

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/mindmate/backend/internal/middleware"
	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
	"github.com/zhouzirui/mindmate/backend/internal/service/ai"
	chatService "github.com/zhouzirui/mindmate/backend/internal/service/chat"
	"github.com/zhouzirui/mindmate/backend/pkg/utils"
)

// Handler 视频聊天的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
	// verbose 为 true 时 500 响应带上错误详情，仅开发环境使用
	verbose bool
	now     func() time.Time
}

func New(chatSvc *chatService.Service, verbose bool) *Handler {
	return &Handler{chatSvc: chatSvc, verbose: verbose, now: time.Now}
}

// RegisterRoutes 注册 /videochat 下的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.handleFrame)
	r.Get("/health", h.handleHealth)
	r.Group(func(protected chi.Router) {
		protected.Use(middleware.RequireUser)
		protected.Get("/history", h.handleHistory)
		protected.Get("/analytics", h.handleAnalytics)
	})
}

type frameResponse struct {
	Success bool `json:"success"`
	chatService.VideoReply
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (h *Handler) fail(w http.ResponseWriter, status int, message string, err error) {
	resp := errorResponse{Message: message}
	if h.verbose && err != nil && status >= http.StatusInternalServerError {
		resp.Details = err.Error()
	}
	utils.RespondJSON(w, status, resp)
}

func (h *Handler) handleFrame(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ImageData string `json:"imageData"`
		Message   string `json:"message"`
		Language  string `json:"language"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		h.fail(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	reply, err := h.chatSvc.Video(r.Context(), chatService.VideoRequest{
		RequestID: chimw.GetReqID(r.Context()),
		UserID:    middleware.UserID(r.Context()),
		ImageData: payload.ImageData,
		Message:   payload.Message,
		Language:  payload.Language,
	})
	switch {
	case err == nil:
		utils.RespondJSON(w, http.StatusOK, frameResponse{Success: true, VideoReply: reply})
	case errors.Is(err, chatService.ErrImageRequired):
		h.fail(w, http.StatusBadRequest, "Image data is required for video chat", nil)
	case errors.Is(err, chatService.ErrInvalidImage):
		h.fail(w, http.StatusBadRequest, "Invalid image data format. Please provide base64 encoded image.", nil)
	case errors.Is(err, ai.ErrModelUnavailable):
		slog.WarnContext(r.Context(), "video chat completion unavailable", "error", err)
		h.fail(w, http.StatusServiceUnavailable, "AI service is temporarily unavailable", err)
	default:
		slog.ErrorContext(r.Context(), "video chat processing failed", "error", err)
		h.fail(w, http.StatusInternalServerError, "Error processing video chat request.", err)
	}
}

type historyEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Messages  []chat.Message `json:"messages"`
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	vh, err := h.chatSvc.VideoHistory(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		slog.ErrorContext(r.Context(), "fetch video history failed", "error", err)
		h.fail(w, http.StatusInternalServerError, "Failed to fetch video chat history", nil)
		return
	}

	entries := make([]historyEntry, 0, len(vh.Turns))
	for _, turn := range vh.Turns {
		entries = append(entries, historyEntry{ID: turn.ID, Timestamp: turn.CreatedAt, Messages: turn.Messages})
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"history":       entries,
		"emotionStats":  vh.EmotionStats,
		"totalSessions": len(vh.Turns),
	})
}

func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	// 非法的 days 按默认值处理
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	analytics, err := h.chatSvc.Analytics(r.Context(), middleware.UserID(r.Context()), days)
	if err != nil {
		slog.ErrorContext(r.Context(), "fetch emotion analytics failed", "error", err)
		h.fail(w, http.StatusInternalServerError, "Failed to fetch emotion analytics", nil)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"analytics": map[string]any{
			"emotionTrends": analytics.EmotionTrends,
			"dailyEmotions": analytics.DailyEmotions,
			"totalSessions": analytics.TotalSessions,
			"dateRange": map[string]time.Time{
				"start": analytics.Start,
				"end":   analytics.End,
			},
		},
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Video chat service is running",
		"timestamp": h.now().UTC(),
		"features": map[string]bool{
			"emotionDetection":    true,
			"multilingualSupport": true,
			"chatHistory":         true,
			"analytics":           true,
		},
	})
}
