package transport

import (
	"context"
	"net/http"
	"strings"
	"time"

	"petcare-be/internal/cart"
	"petcare-be/internal/utils"

	"github.com/google/uuid"
)

type ctxKey string

const cartOwnerKey ctxKey = "cartOwner"

const (
	CartIDHeader = "X-Cart-ID"
	CartIDCookie = "cart_id"

	guestCookieTTL = 30 * 24 * time.Hour
)

func WithCartOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, cartOwnerKey, owner)
}

func CartOwnerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(cartOwnerKey).(string)
	return owner
}

// CartIdentity resolves which cart a request works on and stores it in the
// context. Signed-in users own user:<id>. Guests are identified by the
// X-Cart-ID header or the cart_id cookie; a guest with neither gets a fresh id
// sent back in both.
func CartIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID, ok := utils.GetUserIDFromContext(r.Context()); ok {
			ctx := WithCartOwner(r.Context(), cart.UserOwner(userID))
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		cartID := guestCartID(r)
		if cartID == "" {
			cartID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     CartIDCookie,
				Value:    cartID,
				Path:     "/",
				Expires:  time.Now().Add(guestCookieTTL),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		w.Header().Set(CartIDHeader, cartID)

		ctx := WithCartOwner(r.Context(), cart.GuestOwner(cartID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// guestCartID accepts only uuids so a client cannot address arbitrary keys.
func guestCartID(r *http.Request) string {
	candidates := []string{strings.TrimSpace(r.Header.Get(CartIDHeader))}
	if c, err := r.Cookie(CartIDCookie); err == nil {
		candidates = append(candidates, strings.TrimSpace(c.Value))
	}

	for _, c := range candidates {
		if _, err := uuid.Parse(c); err == nil {
			return c
		}
	}
	return ""
}
