// Package mongo is the MongoDB Repository backend. Each resource type lives
// in its own collection with documents stored inline, nested objects included.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"longtrees/internal/nursery/models"
	"longtrees/internal/nursery/store"
	"longtrees/pkg/domain"
	"longtrees/pkg/platform/sentinel"
)

// Collection stores documents of type T in one MongoDB collection.
type Collection[T models.Document[T]] struct {
	coll *mongo.Collection
}

// New binds T's collection in db.
func New[T models.Document[T]](db *mongo.Database) *Collection[T] {
	var zero T
	return NewNamed[T](db, zero.Collection())
}

// NewNamed binds a collection with an explicit name. Tests use it to isolate
// runs sharing one database.
func NewNamed[T models.Document[T]](db *mongo.Database, name string) *Collection[T] {
	return &Collection[T]{coll: db.Collection(name)}
}

func (c *Collection[T]) Create(ctx context.Context, doc T) (domain.ID, error) {
	id := domain.NewID()
	if _, err := c.coll.InsertOne(ctx, doc.WithID(id)); err != nil {
		return domain.NilID, unavailable("insert", err)
	}
	return id, nil
}

func (c *Collection[T]) Get(ctx context.Context, id domain.ID) (T, error) {
	var doc T
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		return doc, notFoundOr("find", err)
	}
	return doc, nil
}

func (c *Collection[T]) List(ctx context.Context, opts store.ListOptions) iter.Seq2[T, error] {
	return store.OneShot(func(yield func(T, error) bool) {
		var zero T
		filter := bson.M{}
		if opts.After != nil {
			filter["_id"] = bson.M{"$gt": *opts.After}
		}
		findOpts := options.Find().
			SetSort(bson.D{{Key: "_id", Value: 1}}).
			SetLimit(int64(opts.PageSize()))

		cursor, err := c.coll.Find(ctx, filter, findOpts)
		if err != nil {
			yield(zero, unavailable("find", err))
			return
		}
		defer cursor.Close(context.WithoutCancel(ctx))

		for cursor.Next(ctx) {
			var doc T
			if err := cursor.Decode(&doc); err != nil {
				yield(zero, fmt.Errorf("decode document: %w", err))
				return
			}
			if !yield(doc, nil) {
				return
			}
		}
		if err := cursor.Err(); err != nil {
			yield(zero, unavailable("cursor", err))
		}
	})
}

// Update sets every client field in one FindOneAndUpdate; derived fields are
// left out of the $set so they keep their stored values.
func (c *Collection[T]) Update(ctx context.Context, id domain.ID, doc T) (T, error) {
	var zero T
	patch, err := clientFields(doc, zero.DerivedFields())
	if err != nil {
		return zero, err
	}
	return c.findOneAndUpdate(ctx, id, bson.D{{Key: "$set", Value: patch}})
}

func (c *Collection[T]) Delete(ctx context.Context, id domain.ID) error {
	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return unavailable("delete", err)
	}
	if res.DeletedCount == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (c *Collection[T]) Amend(ctx context.Context, id domain.ID, amendments ...store.Amendment) (T, error) {
	var zero T
	update, err := updateDocument(amendments)
	if err != nil {
		return zero, err
	}
	return c.findOneAndUpdate(ctx, id, update)
}

func (c *Collection[T]) Ping(ctx context.Context) error {
	if err := c.coll.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (c *Collection[T]) findOneAndUpdate(ctx context.Context, id domain.ID, update bson.D) (T, error) {
	var doc T
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := c.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&doc)
	if err != nil {
		return doc, notFoundOr("update", err)
	}
	return doc, nil
}

// clientFields encodes doc and keeps every top-level element except _id and
// the derived fields. Elements stay raw so nested types encode exactly as on
// insert.
func clientFields(doc any, derived []string) (bson.D, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	elems, err := bson.Raw(raw).Elements()
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	patch := make(bson.D, 0, len(elems))
	for _, e := range elems {
		key := e.Key()
		if key == "_id" || slices.Contains(derived, key) {
			continue
		}
		patch = append(patch, bson.E{Key: key, Value: e.Value()})
	}
	return patch, nil
}

func updateDocument(amendments []store.Amendment) (bson.D, error) {
	ops := map[store.AmendOp]bson.D{}
	for _, a := range amendments {
		switch a.Op {
		case store.OpPush, store.OpAddToSet, store.OpSet:
			ops[a.Op] = append(ops[a.Op], bson.E{Key: a.Field, Value: a.Value})
		default:
			return nil, fmt.Errorf("unsupported amendment %s", a.Op)
		}
	}
	operators := []struct {
		op   store.AmendOp
		name string
	}{
		{store.OpPush, "$push"},
		{store.OpAddToSet, "$addToSet"},
		{store.OpSet, "$set"},
	}
	update := bson.D{}
	for _, o := range operators {
		if fields, ok := ops[o.op]; ok {
			update = append(update, bson.E{Key: o.name, Value: fields})
		}
	}
	if len(update) == 0 {
		return nil, errors.New("no amendments")
	}
	return update, nil
}

func notFoundOr(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return sentinel.ErrNotFound
	}
	return unavailable(op, err)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("mongo %s: %w: %w", op, sentinel.ErrUnavailable, err)
}
