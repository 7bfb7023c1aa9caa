package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/render"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a logged 500 with a JSON body
func Recovery(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic recovered",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("path", r.URL.Path),
					zap.String("panic", fmt.Sprint(rec)),
					zap.ByteString("stack", debug.Stack()),
				)

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, map[string]string{
					"error":   "internal_server_error",
					"message": "An unexpected error occurred",
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
