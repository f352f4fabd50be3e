package locale

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

const (
	Japanese = "ja"
	English  = "en"

	// CookieName holds an explicit per-browser choice.
	CookieName = "locale"
)

// Resolver picks a locale from, in order: the cookie, the user's stored
// preference, the primary tag of the best Accept-Language entry, the default.
// A value that is not supported falls through to the next source.
type Resolver struct {
	supported map[string]bool
	def       string
}

func NewResolver(def string, supported []string) *Resolver {
	r := &Resolver{supported: make(map[string]bool)}
	for _, s := range supported {
		if s = Normalize(s); s != "" {
			r.supported[s] = true
		}
	}
	if len(r.supported) == 0 {
		r.supported[Japanese] = true
		r.supported[English] = true
	}

	r.def = Normalize(def)
	if !r.supported[r.def] {
		r.def = Japanese
		r.supported[Japanese] = true
	}
	return r
}

func (r *Resolver) Default() string {
	return r.def
}

func (r *Resolver) IsSupported(locale string) bool {
	return r.supported[Normalize(locale)]
}

func (r *Resolver) Resolve(cookie, stored, acceptLanguage string) string {
	for _, candidate := range []string{cookie, stored, r.fromHeader(acceptLanguage)} {
		if c := Normalize(candidate); r.supported[c] {
			return c
		}
	}
	return r.def
}

// FromRequest resolves using the request's cookie and Accept-Language header.
func (r *Resolver) FromRequest(req *http.Request, stored string) string {
	var cookie string
	if c, err := req.Cookie(CookieName); err == nil {
		cookie = c.Value
	}
	return r.Resolve(cookie, stored, req.Header.Get("Accept-Language"))
}

// fromHeader returns the base language of the highest weighted entry.
// ParseAcceptLanguage sorts by q already.
func (r *Resolver) fromHeader(header string) string {
	if strings.TrimSpace(header) == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}
	base, _ := tags[0].Base()
	return base.String()
}

// Normalize is the canonical form of a locale value: trimmed, lower case.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
