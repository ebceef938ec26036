package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/zhouzirui/mindmate/backend/pkg/utils"
)

type ctxKey struct{}

// TokenParser 从令牌中解析出用户 ID。
type TokenParser interface {
	Parse(token string) (string, error)
}

// UserID returns the caller identity attached by Authenticate, or "".
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// WithUserID 把用户 ID 放入 context，测试中也会用到。
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// Authenticate 解析 Bearer 令牌。缺失或无效的令牌不会拒绝请求，调用者按匿名处理；
// 需要身份的路由再挂 RequireUser。parser 为 nil 时所有请求都是匿名的。
func Authenticate(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" || parser == nil {
				next.ServeHTTP(w, r)
				return
			}
			userID, err := parser.Parse(token)
			if err != nil {
				slog.DebugContext(r.Context(), "ignoring invalid bearer token", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserID(r.Context()) == "" {
			utils.RespondJSON(w, http.StatusUnauthorized, map[string]any{
				"success": false,
				"message": "Authentication required",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
