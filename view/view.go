// Package view renders the server-side HTML pages.
package view

import (
	"bytes"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/diewo77/minimarket/auth"
	"github.com/diewo77/minimarket/i18n"
	"github.com/diewo77/minimarket/internal/models"
	"github.com/shopspring/decimal"
)

var (
	baseDir  string
	once     sync.Once
	devMode  bool
	tplCache = struct {
		sync.RWMutex
		m map[string]*template.Template
	}{m: map[string]*template.Template{}}

	langResolver = func(r *http.Request) string { return i18n.LangFromContext(r.Context()) }
	// permission resolvers are set by the host app so templates can show or hide actions
	canProfileResolver func(*http.Request, string, string) bool
	roleResolver       func(*http.Request) models.RoleName
)

// SetCanProfileResolver sets a callback used by templates to check role permissions.
func SetCanProfileResolver(f func(*http.Request, string, string) bool) {
	if f != nil {
		canProfileResolver = f
	}
}

// SetRoleResolver sets a callback returning the role of the signed-in user ("" when anonymous).
func SetRoleResolver(f func(*http.Request) models.RoleName) {
	if f != nil {
		roleResolver = f
	}
}

// SetLangResolver allows the host app to provide a custom language resolver.
func SetLangResolver(f func(*http.Request) string) {
	if f != nil {
		langResolver = f
	}
}

// SetDev disables the template cache so edits show up without a restart.
func SetDev(dev bool) { devMode = dev }

func detectBase() {
	candidates := []string{"templates", "../templates", "../../templates"}
	for _, c := range candidates {
		if fi, err := os.Stat(filepath.Clean(c)); err == nil && fi.IsDir() {
			baseDir = filepath.Clean(c)
			return
		}
	}
	baseDir = "templates"
}

// Money formats an amount with two decimals.
func Money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// Funcs returns the standard func map including i18n and simple helpers.
func Funcs(r *http.Request) template.FuncMap {
	lang := langResolver(r)
	return template.FuncMap{
		"t":    func(code string) string { return i18n.T(lang, code) },
		"lang": func() string { return lang },
		// can checks a role permission (resource, action)
		"can": func(resource, action string) bool {
			if canProfileResolver == nil {
				return false
			}
			return canProfileResolver(r, resource, action)
		},
		"role": func() string {
			if roleResolver == nil {
				return ""
			}
			return string(roleResolver(r))
		},
		"money":  Money,
		"states": func() []models.OrderState { return models.OrderStates },
		"roles":  func() []models.RoleName { return models.AllRoles },
		"date":   func(t time.Time) string { return t.Format("02/01/2006 15:04") },
		"year":   func() int { return time.Now().Year() },
		// dict creates a map from key-value pairs for passing to sub-templates.
		"dict": func(values ...any) map[string]any {
			if len(values)%2 != 0 {
				return nil
			}
			m := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					continue
				}
				m[key] = values[i+1]
			}
			return m
		},
	}
}

// SetBaseDir overrides the template base directory (useful for tests or custom setups).
func SetBaseDir(path string) {
	if path == "" {
		return
	}
	baseDir = filepath.Clean(path)
	once = sync.Once{}
}

// ResetForTests clears caches and forces base dir detection to rerun.
func ResetForTests() {
	tplCache.Lock()
	tplCache.m = map[string]*template.Template{}
	tplCache.Unlock()
	baseDir = ""
	once = sync.Once{}
}

// Render parses layout.html plus the named page and executes it.
func Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	return RenderStatus(w, r, http.StatusOK, name, data)
}

// RenderStatus is Render with an explicit status code.
// The page is rendered into a buffer first so a template error never yields a half-written response.
func RenderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) error {
	if baseDir == "" {
		once.Do(detectBase)
	}
	if data == nil {
		data = map[string]any{}
	}
	if _, exists := data["Year"]; !exists {
		data["Year"] = time.Now().Year()
	}
	if _, exists := data["IsLoggedIn"]; !exists {
		_, loggedIn := auth.UserIDFromContext(r.Context())
		data["IsLoggedIn"] = loggedIn
	}

	t, err := lookup(r, name)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}

// lookup returns the parsed template. Funcs are request-bound, so cached templates are cloned
// and rebound before use.
func lookup(r *http.Request, name string) (*template.Template, error) {
	funcs := Funcs(r)
	if !devMode {
		tplCache.RLock()
		t, ok := tplCache.m[name]
		tplCache.RUnlock()
		if ok {
			c, err := t.Clone()
			if err != nil {
				return nil, err
			}
			return c.Funcs(funcs), nil
		}
	}
	files := []string{filepath.Join(baseDir, "layout.html"), filepath.Join(baseDir, name)}
	t, err := template.New("layout.html").Funcs(funcs).ParseFiles(files...)
	if err != nil {
		return nil, err
	}
	if devMode {
		return t, nil
	}
	tplCache.Lock()
	tplCache.m[name] = t
	tplCache.Unlock()
	return t.Clone()
}
