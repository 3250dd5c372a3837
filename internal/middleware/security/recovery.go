package security

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/GillJordan/Home-expense/internal/log"
)

// Recovery turns a handler panic into a 500 written by onPanic.
func Recovery(logger *log.Logger, onPanic func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.ErrorContext(r.Context(), "Panic recovered",
						log.FieldError, fmt.Sprint(rec),
						log.FieldErrorType, log.ErrorTypeInternal,
						log.FieldMethod, r.Method,
						log.FieldPath, r.URL.Path,
						"stack", string(debug.Stack()))
					if onPanic != nil {
						onPanic(w, r)
						return
					}
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
