package middleware

import (
	"net/http"

	"tokenjar/internal/auth"
	"tokenjar/internal/store"
)

const sessionCookieName = "tokenjar_session"

// RequireAuth validates the session cookie, loads the account, and populates
// AuthContext. Unauthenticated requests get 401.
func RequireAuth(sessionStore *store.SessionStore, accountStore *store.AccountStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			sess, err := sessionStore.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			account, err := accountStore.GetByID(sess.AccountID)
			if err != nil || account == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ac := auth.AuthContext{
				AccountID: account.ID,
				Email:     account.Email,
				SessionID: sess.ID,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
