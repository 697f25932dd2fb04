package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/claudiator/server-go/internal/errors"
)

// Gates are the authorization middlewares routes are registered behind.
type Gates struct {
	Read  func(http.Handler) http.Handler
	Write func(http.Handler) http.Handler
	Admin func(http.Handler) http.Handler
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.BodyTooLarge()
		}
		return apperrors.BadRequest("Invalid JSON body: " + err.Error())
	}
	return nil
}
