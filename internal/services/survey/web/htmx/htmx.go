// Package htmx renders templ components for full page loads and HTMX swaps.
package htmx

import (
	"bytes"
	"html"
	"net/http"
	"strings"

	"github.com/a-h/templ"
)

// RequestHeaderKey is the header HTMX sets on partial update requests.
const RequestHeaderKey = "HX-Request"

// IsHTMXRequest reports whether the request was initiated by HTMX.
func IsHTMXRequest(r *http.Request) bool {
	if r == nil {
		return false
	}
	return strings.EqualFold(r.Header.Get(RequestHeaderKey), "true")
}

// TitleTag formats an escaped `<title>` element.
func TitleTag(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	return "<title>" + html.EscapeString(title) + "</title>"
}

// RenderPage writes fragment for HTMX requests and full otherwise, with the
// given status. HTMX responses get a title tag prepended when the fragment
// has none, so history entries stay labelled. A nil component falls back to
// the other one.
func RenderPage(w http.ResponseWriter, r *http.Request, status int, fragment, full templ.Component, title string) {
	if status == 0 {
		status = http.StatusOK
	}
	if fragment == nil {
		fragment = full
	}
	if full == nil {
		full = fragment
	}
	if full == nil {
		w.WriteHeader(status)
		return
	}

	if !IsHTMXRequest(r) {
		templ.Handler(full, templ.WithStatus(status)).ServeHTTP(w, r)
		return
	}

	var body bytes.Buffer
	if err := fragment.Render(r.Context(), &body); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	out := addTitleIfMissing(body.Bytes(), TitleTag(title))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(out)
}

func addTitleIfMissing(body []byte, titleTag string) []byte {
	if titleTag == "" || bytes.Contains(bytes.ToLower(body), []byte("<title")) {
		return body
	}
	return append([]byte(titleTag), body...)
}
