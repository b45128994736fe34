package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/tenantdesk/apiserver/internal/handlers"
)

const (
	idempotencyHeader = "Idempotency-Key"
	maxIdempotencyKey = 255
)

// IdempotencyStore claims Idempotency-Key values per caller.
// *cache.IdempotencyStore satisfies it.
type IdempotencyStore interface {
	Claim(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
}

// Idempotency rejects a POST whose Idempotency-Key the same caller already
// used. Keys of requests that end in a server error or a panic are released
// so the client can retry. When the store is unreachable requests pass through.
func Idempotency(store IdempotencyStore, onReplay func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if r.Method != http.MethodPost || key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKey {
				writeJSONError(w, http.StatusBadRequest, "Idempotency-Key is too long")
				return
			}

			p, ok := handlers.PrincipalFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			scope := p.UserID.String()

			claimed, err := store.Claim(r.Context(), scope, key)
			if err != nil {
				hlog.FromRequest(r).Warn().Err(err).Msg("idempotency store unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if !claimed {
				if onReplay != nil {
					onReplay()
				}
				writeJSONError(w, http.StatusConflict, "duplicate request: Idempotency-Key already used")
				return
			}

			release := func() {
				if err := store.Release(context.WithoutCancel(r.Context()), scope, key); err != nil {
					hlog.FromRequest(r).Warn().Err(err).Msg("failed to release idempotency key")
				}
			}
			// release before a panic reaches the recoverer
			defer func() {
				if rec := recover(); rec != nil {
					release()
					panic(rec)
				}
			}()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if ww.Status() >= http.StatusInternalServerError {
				release()
			}
		})
	}
}
