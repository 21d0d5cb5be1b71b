package handlers

import (
	"net/http"

	"github.com/diewo77/minimarket/auth"
	"github.com/diewo77/minimarket/httpx"
	"github.com/diewo77/minimarket/internal/accounts"
	"github.com/diewo77/minimarket/internal/apperr"
	"github.com/diewo77/minimarket/internal/models"
	"github.com/diewo77/minimarket/validation"
	"go.uber.org/zap"
)

type AuthHandler struct {
	base
	Accounts *accounts.Service
}

func NewAuthHandler(acc *accounts.Service, log *zap.Logger) *AuthHandler {
	return &AuthHandler{base: base{Log: log}, Accounts: acc}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// landing is where a user goes after signing in.
func landing(u *models.User) string {
	switch u.RoleName() {
	case models.RoleAdmin:
		return "/admin"
	case models.RoleCourier:
		return "/courier/orders"
	default:
		return "/"
	}
}

func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, "login.html", nil, map[string]any{"authenticated": false})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	err := decodeOrForm(r, &in, func() validation.Violations {
		in.Email = r.FormValue("email")
		in.Password = r.FormValue("password")
		return nil
	})
	if err != nil {
		h.fail(w, r, err, "/login")
		return
	}
	user, err := h.Accounts.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		if httpx.WantsJSON(r) || apperr.KindOf(err) != apperr.KindInvalidCredentials {
			h.fail(w, r, err, "/login")
			return
		}
		h.pageStatus(w, r, http.StatusUnauthorized, "login.html", map[string]any{"Email": in.Email, "Error": "invalid_credentials"}, nil)
		return
	}
	auth.CreateSession(w, user.ID)
	h.done(w, r, http.StatusOK, user, "welcome", landing(user))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	h.done(w, r, http.StatusNoContent, nil, "logged_out", "/")
}

func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, "register.html", map[string]any{"Input": accounts.RegisterInput{}}, nil)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in accounts.RegisterInput
	err := decodeOrForm(r, &in, func() validation.Violations {
		in = accounts.RegisterInput{
			FullName: r.FormValue("full_name"),
			Email:    r.FormValue("email"),
			Password: r.FormValue("password"),
			Confirm:  r.FormValue("confirm"),
		}
		return nil
	})
	if err != nil {
		h.fail(w, r, err, "/register")
		return
	}
	user, err := h.Accounts.Register(r.Context(), in)
	if err != nil {
		if httpx.WantsJSON(r) {
			h.fail(w, r, err, "/register")
			return
		}
		e := apperr.As(err)
		if e.Kind == apperr.KindInternal {
			h.fail(w, r, err, "/register")
			return
		}
		h.pageStatus(w, r, httpx.Status(e.Kind), "register.html", map[string]any{"Input": in, "Error": e.Code, "Errors": e.Fields}, nil)
		return
	}
	auth.CreateSession(w, user.ID)
	h.done(w, r, http.StatusCreated, user, "welcome", "/")
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.Accounts.Get(r.Context(), actor(r).ID)
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}
	h.page(w, r, "profile.html", map[string]any{"User": user}, user)
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in accounts.ProfileInput
	err := decodeOrForm(r, &in, func() validation.Violations {
		in = accounts.ProfileInput{
			FullName: r.FormValue("full_name"),
			Phone:    r.FormValue("phone"),
			Address:  r.FormValue("address"),
			Password: r.FormValue("password"),
			Confirm:  r.FormValue("confirm"),
		}
		return nil
	})
	if err != nil {
		h.fail(w, r, err, "/profile")
		return
	}
	user, err := h.Accounts.UpdateProfile(r.Context(), actor(r).ID, in)
	if err != nil {
		h.fail(w, r, err, "/profile")
		return
	}
	h.done(w, r, http.StatusOK, user, "saved", "/profile")
}
