package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/mindmate/backend/internal/handler/chat"
	"github.com/zhouzirui/mindmate/backend/internal/handler/videochat"
	middlewarePkg "github.com/zhouzirui/mindmate/backend/internal/middleware"
	chatService "github.com/zhouzirui/mindmate/backend/internal/service/chat"
	"github.com/zhouzirui/mindmate/backend/pkg/utils"
)

// Options 控制路由的可选行为。
type Options struct {
	// Tokens 为空时所有请求按匿名处理，需要身份的路由返回 401。
	Tokens middlewarePkg.TokenParser
	// Verbose 在 500 响应中附带错误详情。
	Verbose bool
}

// NewRouter wires HTTP routes to core services.
func NewRouter(chatSvc *chatService.Service, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)
	r.Use(middlewarePkg.Authenticate(opts.Tokens))

	chatHandler := chat.New(chatSvc)
	videoHandler := videochat.New(chatSvc, opts.Verbose)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "MindMate backend is running"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Route("/chat", chatHandler.RegisterRoutes)
		api.Route("/videochat", videoHandler.RegisterRoutes)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondError(w, http.StatusNotFound, "Route not found")
	})

	return r
}
