package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	apperror "github.com/tripdesk/tripdesk/domain/error"
	"github.com/tripdesk/tripdesk/domain/valueobject"
	"github.com/tripdesk/tripdesk/infrastructure/http/middleware"
	"github.com/tripdesk/tripdesk/infrastructure/http/response"
	"github.com/tripdesk/tripdesk/infrastructure/http/validator"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a bounded JSON body into dst and runs tag validation.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return apperror.ErrInvalidRequest("request body is empty")
		}
		return apperror.ErrInvalidRequest("invalid request body: " + err.Error())
	}
	return validator.Struct(dst)
}

// actorOrAbort writes 401 when the request carries no authenticated actor.
func actorOrAbort(w http.ResponseWriter, r *http.Request) (valueobject.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "User not authenticated")
	}
	return actor, ok
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
