package i18n

import "net/http"

// LangCookie remembers the language picked with ?lang= across pages.
const LangCookie = "lang"

// Middleware injects a localizer into every request context. A supported
// ?lang= query parameter wins and is stored in LangCookie, then the cookie,
// then the Accept-Language header, then lang.
func Middleware(lang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var prefs []string
			if q := r.URL.Query().Get("lang"); Supported(q) {
				prefs = append(prefs, q)
				http.SetCookie(w, &http.Cookie{
					Name:     LangCookie,
					Value:    q,
					Path:     "/",
					MaxAge:   365 * 24 * 60 * 60,
					SameSite: http.SameSiteLaxMode,
				})
			} else if c, err := r.Cookie(LangCookie); err == nil && Supported(c.Value) {
				prefs = append(prefs, c.Value)
			}
			if al := r.Header.Get("Accept-Language"); al != "" {
				prefs = append(prefs, al)
			}
			prefs = append(prefs, lang)
			ctx := WithLocalizer(r.Context(), NewLocalizer(prefs...))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
