package httpclient

import (
	"net/http"

	"github.com/sardanioss/resourcefetch/fetcher"
	"github.com/sardanioss/resourcefetch/session"
)

// attachCookies sets the Cookie header from tx.Session's jar — the
// snapshot the scheduler handed this dispatch at fetchResource time
// (spec.md §9: "the collaborator receives a snapshot at dispatch
// time").
func attachCookies(req *http.Request, tx fetcher.Tx) {
	if tx.Session == nil || tx.Session.Cookies == nil {
		return
	}
	secure := req.URL.Scheme == "https"
	for _, c := range tx.Session.Cookies.Get(req.URL.Hostname(), req.URL.Path, secure) {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
}

// storeCookies parses every Set-Cookie header on resp into a
// session.Update that records each cookie via Session.WithCookie. It
// never touches tx.Session itself: a sibling sub-resource dispatched in
// the same page load still holds the snapshot it was handed at
// fetchResource time (spec.md §9), and this response's cookies only
// become visible once the scheduler folds the returned Update into its
// own session on the event's turn through resourceFetched.
func storeCookies(resp *http.Response) session.Update {
	cookies := resp.Cookies()
	if len(cookies) == 0 {
		return nil
	}

	host := resp.Request.URL.Hostname()
	secure := resp.Request.URL.Scheme == "https"

	datas := make([]*session.CookieData, 0, len(cookies))
	for _, c := range cookies {
		data := &session.CookieData{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			MaxAge:   c.MaxAge,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
			SameSite: sameSiteString(c.SameSite),
		}
		if !c.Expires.IsZero() {
			exp := c.Expires
			data.Expires = &exp
		}
		datas = append(datas, data)
	}

	return func(s *session.Session) *session.Session {
		for _, data := range datas {
			s = s.WithCookie(host, data, secure)
		}
		return s
	}
}

func sameSiteString(s http.SameSite) string {
	switch s {
	case http.SameSiteLaxMode:
		return "Lax"
	case http.SameSiteStrictMode:
		return "Strict"
	case http.SameSiteNoneMode:
		return "None"
	default:
		return ""
	}
}
