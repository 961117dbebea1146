package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/xid"
)

// CookieName is the cookie that carries the signed viewer token.
const CookieName = "viewer"

// contextKey is an unexported type used for context keys in this package, so
// no other package can read or shadow the viewer ID.
type contextKey string

const viewerIDKey contextKey = "viewerID"

// Viewer is a middleware that guarantees every request has a viewer identity.
//
// It reads the JWT from the "viewer" HttpOnly cookie and validates it. When
// the cookie is missing or invalid, a fresh viewer ID is minted and a new
// cookie is set on the response. Either way the request continues with the
// viewer ID stored in its context; this middleware never rejects a request.
func Viewer(tokens *TokenService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			viewerID, err := extractViewerID(r, tokens)
			if err != nil {
				viewerID = xid.New().String()
				if err := issue(w, r, tokens, viewerID); err != nil {
					// The request is still served; preferences just won't stick.
					logger.Error("issuing viewer cookie", slog.String("error", err.Error()))
				}
			}

			ctx := WithViewerID(r.Context(), viewerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithViewerID returns a copy of ctx carrying viewerID.
func WithViewerID(ctx context.Context, viewerID string) context.Context {
	return context.WithValue(ctx, viewerIDKey, viewerID)
}

// ViewerIDFromContext retrieves the viewer ID set by the Viewer middleware.
//
// Returns ("", false) if the request did not pass through the middleware.
func ViewerIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(viewerIDKey).(string)
	return id, ok && id != ""
}

// extractViewerID reads the viewer cookie and validates it.
func extractViewerID(r *http.Request, tokens *TokenService) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", err
	}
	return tokens.Validate(cookie.Value)
}

// issue signs viewerID and sets it as an HttpOnly cookie.
//
// COOKIE FLAGS:
//   - HttpOnly: page scripts cannot read the token
//   - SameSite=Lax: sent on top-level navigation, not on cross-site subrequests
//   - Secure: only when the request itself arrived over TLS
func issue(w http.ResponseWriter, r *http.Request, tokens *TokenService, viewerID string) error {
	token, err := tokens.Generate(viewerID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearCookie tells the browser to drop the viewer cookie. The next request
// starts a fresh viewer.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
