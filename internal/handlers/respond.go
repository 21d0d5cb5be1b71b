// Package handlers holds the HTTP handlers. Every handler answers JSON clients
// (Accept: application/json) and browsers (HTML pages, flashes and redirects).
package handlers

import (
	"net/http"

	"github.com/diewo77/minimarket/httpx"
	"github.com/diewo77/minimarket/internal/apperr"
	"github.com/diewo77/minimarket/internal/middleware"
	"github.com/diewo77/minimarket/internal/policy"
	"github.com/diewo77/minimarket/validation"
	"github.com/diewo77/minimarket/view"
	"go.uber.org/zap"
)

// base is embedded by every handler.
type base struct {
	Log *zap.Logger
}

// page renders an HTML template, or payload as JSON for API clients.
func (b base) page(w http.ResponseWriter, r *http.Request, name string, data map[string]any, payload any) {
	b.pageStatus(w, r, http.StatusOK, name, data, payload)
}

func (b base) pageStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any, payload any) {
	if httpx.WantsJSON(r) {
		httpx.JSON(w, status, payload)
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["Flash"]; !ok {
		data["Flash"] = middleware.PopFlash(w, r)
	}
	if err := view.RenderStatus(w, r, status, name, data); err != nil {
		b.Log.Error("render failed", zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// fail reports err: a JSON error body for API clients, a flash plus redirect to back for browsers.
func (b base) fail(w http.ResponseWriter, r *http.Request, err error, back string) {
	e := apperr.As(err)
	if e.Kind == apperr.KindInternal {
		b.Log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.RequestIDFrom(r.Context())),
			zap.Error(err))
	}
	if httpx.WantsJSON(r) {
		httpx.WriteError(w, err)
		return
	}
	code := e.Code
	if e.Kind == apperr.KindInternal {
		code = "internal_error"
	}
	detail := ""
	if e.Kind == apperr.KindInsufficientStock {
		detail = e.Message
	}
	middleware.Flash(w, r, code, detail)
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// done answers a successful mutation.
func (b base) done(w http.ResponseWriter, r *http.Request, status int, payload any, flash, next string) {
	if httpx.WantsJSON(r) {
		if payload == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		httpx.JSON(w, status, payload)
		return
	}
	if flash != "" {
		middleware.Flash(w, r, flash, "")
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// pathID parses the {name} path segment. Malformed ids are reported as notFound.
func pathID(r *http.Request, name, notFound string) (uint, error) {
	v := validation.Violations{}
	id := validation.ParseID(name, r.PathValue(name), v)
	if !v.Empty() {
		return 0, apperr.NotFound(notFound)
	}
	return id, nil
}

// actor returns the actor attached by policy.AuthGate.Middleware.
func actor(r *http.Request) policy.Actor {
	a, _ := policy.ActorFromContext(r.Context())
	return a
}

// decodeOrForm fills dst from a JSON body, or calls form for urlencoded bodies.
func decodeOrForm(r *http.Request, dst any, form func() validation.Violations) error {
	if httpx.IsJSONBody(r) {
		if err := httpx.Decode(r, dst); err != nil {
			return apperr.Validation("invalid_body", nil)
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return apperr.Validation("invalid_body", nil)
	}
	if form == nil {
		return nil
	}
	if v := form(); !v.Empty() {
		return apperr.Invalid(v)
	}
	return nil
}

// truthy reads checkbox-like form values.
func truthy(s string) bool {
	switch s {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
