package core

import (
	"log/slog"
	"net/http"

	"moviesvc/internal/auth"
	"moviesvc/internal/types"
)

// AuthMiddleware wraps handlers requiring authentication.
//
//  1. Extracts the Bearer token from the Authorization header.
//  2. Calls Verifier.Verify to recover the identity.
//  3. Injects the Claims into the request context via types.WithClaims.
//  4. Returns 403 on failure:
//     - auth_token_missing: header absent or not "Bearer <token>".
//     - auth_token_invalid: token present but rejected.
//
// A nil Verifier rejects every request as invalid.
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.ExtractBearer(r.Header.Get("Authorization"))
		if !ok {
			Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, types.MsgTokenMissing, nil))
			return
		}

		if s.Verifier == nil {
			Error(w, r, types.NewAppError(types.ErrCodeAuthTokenInvalid, types.MsgInvalidToken, nil))
			return
		}

		claims, err := s.Verifier.Verify(token)
		if err != nil {
			s.Logger.Warn("authentication failed: token invalid",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
			Error(w, r, types.NewAppError(types.ErrCodeAuthTokenInvalid, types.MsgInvalidToken, err))
			return
		}

		next.ServeHTTP(w, r.WithContext(types.WithClaims(r.Context(), claims)))
	})
}
