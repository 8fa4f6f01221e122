package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"longtrees/internal/nursery/service"
	"longtrees/pkg/domain"
	dErrors "longtrees/pkg/domain-errors"
)

func pathID(r *http.Request) (domain.ID, error) {
	return domain.ParseIDField("id", chi.URLParam(r, "id"))
}

// pageRequest reads ?limit= and ?after= from the query string.
func pageRequest(r *http.Request) (service.PageRequest, error) {
	var req service.PageRequest
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return req, dErrors.InvalidValue("limit", "must be an integer")
		}
		req.Limit = n
	}
	if raw := strings.TrimSpace(q.Get("after")); raw != "" {
		id, err := domain.ParseIDField("after", raw)
		if err != nil {
			return req, err
		}
		req.After = &id
	}
	return req, nil
}

func targetIDFrom(fields map[string]any) (domain.ID, error) {
	raw, ok := fields["target_id"].(string)
	if !ok || strings.TrimSpace(raw) == "" {
		if _, present := fields["target_id"]; present && !ok {
			return domain.NilID, dErrors.InvalidValue("target_id", "must be a string")
		}
		return domain.NilID, dErrors.MissingField("target_id")
	}
	return domain.ParseIDField("target_id", strings.TrimSpace(raw))
}
