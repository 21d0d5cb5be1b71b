package handlers

import (
	"net/http"
	"strings"

	"github.com/diewo77/minimarket/internal/accounts"
	"github.com/diewo77/minimarket/internal/models"
	"github.com/diewo77/minimarket/validation"
	"go.uber.org/zap"
)

// AdminUserHandler manages accounts and role assignment.
// Role changes reach the actor cache through accounts.Service.OnChange.
type AdminUserHandler struct {
	base
	Accounts *accounts.Service
}

func NewAdminUserHandler(acc *accounts.Service, log *zap.Logger) *AdminUserHandler {
	return &AdminUserHandler{base: base{Log: log}, Accounts: acc}
}

// roleParam reads an optional role; anything unknown means "all roles".
func roleParam(raw string) models.RoleName {
	role, ok := models.ParseRoleName(raw)
	if !ok {
		return ""
	}
	return role
}

func (h *AdminUserHandler) List(w http.ResponseWriter, r *http.Request) {
	f := accounts.Filter{
		Role:  roleParam(r.URL.Query().Get("role")),
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
	}
	users, err := h.Accounts.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err, "/admin")
		return
	}
	h.page(w, r, "admin/users/index.html", map[string]any{
		"Users": users,
		"Role":  f.Role,
		"Query": f.Query,
	}, users)
}

func (h *AdminUserHandler) form(w http.ResponseWriter, r *http.Request, id uint, in accounts.UserInput) {
	h.page(w, r, "admin/users/form.html", map[string]any{"ID": id, "Input": in}, in)
}

func (h *AdminUserHandler) New(w http.ResponseWriter, r *http.Request) {
	h.form(w, r, 0, accounts.UserInput{Role: models.RoleCustomer})
}

func (h *AdminUserHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "user_not_found")
	if err != nil {
		h.fail(w, r, err, "/admin/users")
		return
	}
	u, err := h.Accounts.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "/admin/users")
		return
	}
	h.form(w, r, u.ID, accounts.UserInput{
		FullName: u.FullName,
		Email:    u.Email,
		Phone:    u.Phone,
		Address:  u.Address,
		Role:     u.RoleName(),
	})
}

func readUser(r *http.Request) (accounts.UserInput, error) {
	var in accounts.UserInput
	err := decodeOrForm(r, &in, func() validation.Violations {
		in = accounts.UserInput{
			FullName: r.FormValue("full_name"),
			Email:    r.FormValue("email"),
			Password: r.FormValue("password"),
			Phone:    r.FormValue("phone"),
			Address:  r.FormValue("address"),
			Role:     models.RoleName(r.FormValue("role")),
		}
		return nil
	})
	return in, err
}

func (h *AdminUserHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := readUser(r)
	if err != nil {
		h.fail(w, r, err, "/admin/users/new")
		return
	}
	u, err := h.Accounts.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err, "/admin/users/new")
		return
	}
	h.done(w, r, http.StatusCreated, u, "saved", "/admin/users")
}

func (h *AdminUserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "user_not_found")
	if err != nil {
		h.fail(w, r, err, "/admin/users")
		return
	}
	back := r.URL.Path + "/edit"
	in, err := readUser(r)
	if err != nil {
		h.fail(w, r, err, back)
		return
	}
	u, err := h.Accounts.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err, back)
		return
	}
	h.done(w, r, http.StatusOK, u, "saved", "/admin/users")
}

type roleRequest struct {
	Role models.RoleName `json:"role"`
}

// ChangeRole assigns a new role to a user.
func (h *AdminUserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "user_not_found")
	if err != nil {
		h.fail(w, r, err, "/admin/users")
		return
	}
	var in roleRequest
	err = decodeOrForm(r, &in, func() validation.Violations {
		in.Role = models.RoleName(r.FormValue("role"))
		return nil
	})
	if err != nil {
		h.fail(w, r, err, "/admin/users")
		return
	}
	u, err := h.Accounts.ChangeRole(r.Context(), id, in.Role)
	if err != nil {
		h.fail(w, r, err, "/admin/users")
		return
	}
	h.done(w, r, http.StatusOK, u, "saved", "/admin/users")
}

func (h *AdminUserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "user_not_found")
	if err != nil {
		h.fail(w, r, err, "/admin/users")
		return
	}
	if err := h.Accounts.Delete(r.Context(), actor(r).ID, id); err != nil {
		h.fail(w, r, err, "/admin/users")
		return
	}
	h.done(w, r, http.StatusNoContent, nil, "deleted", "/admin/users")
}
