package chat

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/mindmate/backend/internal/middleware"
	"github.com/zhouzirui/mindmate/backend/internal/service/ai"
	chatService "github.com/zhouzirui/mindmate/backend/internal/service/chat"
	"github.com/zhouzirui/mindmate/backend/internal/service/history"
	"github.com/zhouzirui/mindmate/backend/pkg/utils"
)

// Handler 文字聊天的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册 /chat 下的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.handleMessage)
	r.With(middleware.RequireUser).Get("/history", h.handleHistory)
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message  string `json:"message"`
		Language string `json:"language"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.chatSvc.Text(r.Context(), chatService.TextRequest{
		RequestID: chimw.GetReqID(r.Context()),
		UserID:    middleware.UserID(r.Context()),
		Message:   payload.Message,
		Language:  payload.Language,
	})
	if err != nil {
		status, message := statusFor(err)
		if status >= http.StatusInternalServerError {
			slog.ErrorContext(r.Context(), "chat request failed", "error", err)
		}
		utils.RespondError(w, status, message)
		return
	}

	utils.RespondJSON(w, http.StatusOK, reply)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	turns, err := h.chatSvc.History(r.Context(), middleware.UserID(r.Context()), history.Query{})
	if err != nil {
		slog.ErrorContext(r.Context(), "fetch chat history failed", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch chat history")
		return
	}
	utils.RespondJSON(w, http.StatusOK, turns)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, chatService.ErrMessageRequired):
		return http.StatusBadRequest, "Message is required"
	case errors.Is(err, ai.ErrModelUnavailable):
		return http.StatusServiceUnavailable, "AI service is temporarily unavailable"
	default:
		return http.StatusInternalServerError, "An internal server error occurred"
	}
}
