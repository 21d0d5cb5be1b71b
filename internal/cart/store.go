package cart

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/diewo77/minimarket/auth"
)

const (
	cookieName = "cart"
	cookieTTL  = 7 * 24 * time.Hour
)

// Store loads and saves the cart of a request.
type Store interface {
	Load(r *http.Request) *Cart
	Save(w http.ResponseWriter, c *Cart) error
}

// CookieStore keeps the cart in a signed cookie.
type CookieStore struct{}

// Load decodes the cart cookie. A missing, tampered or undecodable cookie yields an empty cart.
func (CookieStore) Load(r *http.Request) *Cart {
	ck, err := r.Cookie(cookieName)
	if err != nil || ck.Value == "" {
		return New()
	}
	payload, ok := auth.Verify(ck.Value)
	if !ok {
		return New()
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return New()
	}
	var lines []Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		return New()
	}
	return New(lines...)
}

// Save writes the cart cookie, or expires it when the cart is empty.
func (CookieStore) Save(w http.ResponseWriter, c *Cart) error {
	if c.Empty() {
		http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", Expires: time.Unix(0, 0), HttpOnly: true, SameSite: http.SameSiteLaxMode})
		return nil
	}
	raw, err := json.Marshal(c.lines)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    auth.Sign(base64.RawURLEncoding.EncodeToString(raw)),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(cookieTTL),
	})
	return nil
}
