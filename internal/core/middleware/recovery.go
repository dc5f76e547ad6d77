package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/Nzyazin/ledger/internal/core/logger"
)

const internalErrorBody = `{"error":"Internal Server Error"}`

// Recovery answers a panicking request with a JSON 500 and keeps the stack in the error log.
func Recovery(log logger.Logger) func(http.Handler) http.Handler {
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

                log.Error("panic recovered",
                    logger.StringField("request_id", RequestID(r.Context())),
                    logger.StringField("route", r.Method+" "+r.URL.Path),
                    logger.AnyField("panic", rec),
                    logger.StringField("stack", string(debug.Stack())),
                )
                w.Header().Set("Content-Type", "application/json")
                w.WriteHeader(http.StatusInternalServerError)
                _, _ = w.Write([]byte(internalErrorBody))
            }()
            next.ServeHTTP(w, r)
        })
    }
}
