package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/shop-checkout/internal/domain/auth"
)

// authenticate resolves the API key sent as "Authorization: Bearer <key>" or
// in the api_key header.
func (h *Handler) authenticate(r *http.Request) (*auth.APIKeyInfo, error) {
	key := r.Header.Get("api_key")
	if v := r.Header.Get("Authorization"); v != "" {
		scheme, token, ok := strings.Cut(v, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			key = strings.TrimSpace(token)
		}
	}
	if key == "" {
		return nil, errUnauthorized
	}

	hash := auth.HashKey(key, h.pepper)
	info, err := h.keys.FindByHash(r.Context(), hash)
	if err != nil {
		if errors.Is(err, auth.ErrKeyNotFound) {
			return nil, errUnauthorized
		}
		return nil, errors.Wrap(err, "find api key")
	}
	// The row matched by hash must still equal the computed hash.
	if subtle.ConstantTimeCompare([]byte(hash), []byte(info.KeyHash)) != 1 {
		return nil, errUnauthorized
	}
	return info, nil
}

func principal(r *http.Request) *auth.APIKeyInfo {
	key, _ := auth.PrincipalFrom(r.Context())
	return key
}
