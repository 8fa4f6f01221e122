// Package httputil holds the JSON response writers and request body decoding
// shared by the HTTP handlers.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	dErrors "longtrees/pkg/domain-errors"
)

// MaxBodyBytes caps request bodies read by DecodeFields.
const MaxBodyBytes = 1 << 20

// WriteJSON writes v as the JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders err as {"error", "error_description", "field"}. Errors
// without a code are treated as internal. Internal and store failures never
// expose their description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	body := map[string]string{}
	if de, ok := dErrors.As(err); ok {
		code = de.Code
		if de.Field != "" {
			body["field"] = de.Field
		}
		if code != dErrors.CodeInternal && code != dErrors.CodeStoreUnavailable {
			body["error_description"] = de.Message
		}
	}
	body["error"] = string(code)
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}

// DecodeFields reads a JSON object or a form body into an untyped field map.
// On failure it writes a bad_request response and returns false.
func DecodeFields(w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (map[string]any, bool) {
	fields, err := decodeFields(w, r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, err)
		return nil, false
	}
	return fields, true
}

func decodeFields(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	mediaType := "application/json"
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, "malformed Content-Type header")
		}
		mediaType = mt
	}

	switch mediaType {
	case "application/json":
		return decodeJSON(r.Body)
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid form body")
		}
		return formFields(r), nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(MaxBodyBytes); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid form body")
		}
		return formFields(r), nil
	default:
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unsupported content type %s", mediaType)
	}
}

func decodeJSON(body io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, dErrors.New(dErrors.CodeBadRequest, "request body too large")
		case errors.Is(err, io.EOF):
			return nil, dErrors.New(dErrors.CodeBadRequest, "request body is empty")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "request body must be a JSON object")
		}
	}
	if fields == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request body must be a JSON object")
	}
	if dec.More() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request body has trailing data")
	}
	return fields, nil
}

// formFields keeps the first value of every posted field.
func formFields(r *http.Request) map[string]any {
	fields := make(map[string]any, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	return fields
}
