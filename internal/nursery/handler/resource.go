package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"longtrees/internal/nursery/models"
	"longtrees/pkg/platform/httputil"
	"longtrees/pkg/requestcontext"
)

// resourceRoutes serves the CRUD routes of one collection.
type resourceRoutes[T any] struct {
	h          *Handler
	collection string
	svc        ResourceService[T]
}

// register mounts, for collection c:
//
//	GET         /c/            list
//	POST        /c/            create
//	GET         /c/{id}        fetch
//	PUT, POST   /c/{id}/edit   full replace
//	DELETE,POST /c/{id}/delete remove
//
// The collection routes also answer without the trailing slash.
func register[T any](r chi.Router, h *Handler, collection string, svc ResourceService[T]) {
	rr := &resourceRoutes[T]{h: h, collection: collection, svc: svc}
	base := "/" + collection

	for _, p := range []string{base, base + "/"} {
		r.Get(p, rr.list)
		r.Post(p, rr.create)
	}
	r.Get(base+"/{id}", rr.get)
	r.Put(base+"/{id}/edit", rr.update)
	r.Post(base+"/{id}/edit", rr.update)
	r.Delete(base+"/{id}/delete", rr.delete)
	r.Post(base+"/{id}/delete", rr.delete)
}

func (rr *resourceRoutes[T]) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := pageRequest(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := rr.svc.List(ctx, req)
	if err != nil {
		rr.h.fail(ctx, w, rr.collection+" list failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (rr *resourceRoutes[T]) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fields, ok := httputil.DecodeFields(w, r, rr.h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	doc, err := rr.svc.Create(ctx, models.Fields(fields))
	if err != nil {
		rr.h.fail(ctx, w, rr.collection+" create failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, doc)
}

func (rr *resourceRoutes[T]) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, err := rr.svc.Get(ctx, id)
	if err != nil {
		rr.h.fail(ctx, w, rr.collection+" get failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

func (rr *resourceRoutes[T]) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	fields, ok := httputil.DecodeFields(w, r, rr.h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	doc, err := rr.svc.Update(ctx, id, models.Fields(fields))
	if err != nil {
		rr.h.fail(ctx, w, rr.collection+" update failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

func (rr *resourceRoutes[T]) delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := rr.svc.Delete(ctx, id); err != nil {
		rr.h.fail(ctx, w, rr.collection+" delete failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
