package docstore

import (
	"context"
	"errors"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo is the MongoDB-backed Store. Document keys map to _id, transforms to
// their native update operators, and live queries ride on change streams: any
// change to the collection triggers a re-query and a full snapshot delivery,
// which is exactly the at-least-once contract subscribers are written against.
type Mongo struct {
	db *mongo.Database
}

// NewMongo wraps an already-connected database handle.
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{db: db}
}

func (m *Mongo) Get(ctx context.Context, collection, key string) (Document, error) {
	var raw bson.M
	err := m.db.Collection(collection).FindOne(ctx, bson.M{"_id": key}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return fromBSON(raw), nil
}

func (m *Mongo) Set(ctx context.Context, collection, key string, doc Document) error {
	replacement := toBSONDoc(doc)
	replacement["_id"] = key
	_, err := m.db.Collection(collection).ReplaceOne(
		ctx,
		bson.M{"_id": key},
		replacement,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (m *Mongo) Update(ctx context.Context, collection, key string, fields Document) error {
	_, err := m.db.Collection(collection).UpdateOne(
		ctx,
		bson.M{"_id": key},
		toUpdateDoc(fields),
		options.Update().SetUpsert(true),
	)
	return err
}

func (m *Mongo) Delete(ctx context.Context, collection, key string) error {
	_, err := m.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": key})
	return err
}

func (m *Mongo) Query(ctx context.Context, collection string, filters ...Filter) ([]Entry, error) {
	cursor, err := m.db.Collection(collection).Find(ctx, toFilterDoc(filters))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []Entry
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}
		key, _ := raw["_id"].(string)
		entries = append(entries, Entry{Key: key, Doc: fromBSON(raw)})
	}
	return entries, cursor.Err()
}

func (m *Mongo) BatchCommit(ctx context.Context, ops []WriteOp) error {
	if len(ops) > BatchLimit {
		return ErrBatchTooLarge
	}

	// Bulk writes are per collection; atomicity never spans collections.
	grouped := make(map[string][]mongo.WriteModel)
	var order []string
	for _, op := range ops {
		if _, seen := grouped[op.Collection]; !seen {
			order = append(order, op.Collection)
		}
		grouped[op.Collection] = append(grouped[op.Collection], toWriteModel(op))
	}

	for _, collection := range order {
		_, err := m.db.Collection(collection).BulkWrite(ctx, grouped[collection], options.BulkWrite().SetOrdered(true))
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Mongo) Subscribe(ctx context.Context, collection string, filters []Filter, onSnapshot SnapshotHandler, onError ErrorHandler) Unsubscribe {
	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		entries, err := m.Query(subCtx, collection, filters...)
		if err != nil {
			if subCtx.Err() == nil {
				onError(err)
			}
			return
		}
		onSnapshot(entries)

		stream, err := m.db.Collection(collection).Watch(subCtx, mongo.Pipeline{})
		if err != nil {
			if subCtx.Err() == nil {
				onError(err)
			}
			return
		}
		defer stream.Close(context.Background())

		for stream.Next(subCtx) {
			entries, err := m.Query(subCtx, collection, filters...)
			if err != nil {
				if subCtx.Err() == nil {
					onError(err)
				}
				return
			}
			onSnapshot(entries)
		}
		if err := stream.Err(); err != nil && subCtx.Err() == nil {
			onError(err)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(cancel)
	}
}

func toWriteModel(op WriteOp) mongo.WriteModel {
	switch op.Kind {
	case WriteSet:
		replacement := toBSONDoc(op.Fields)
		replacement["_id"] = op.Key
		return mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": op.Key}).
			SetReplacement(replacement).
			SetUpsert(true)
	case WriteUpdate:
		return mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": op.Key}).
			SetUpdate(toUpdateDoc(op.Fields)).
			SetUpsert(true)
	default:
		return mongo.NewDeleteOneModel().SetFilter(bson.M{"_id": op.Key})
	}
}

func toFilterDoc(filters []Filter) bson.M {
	out := bson.M{}
	for _, f := range filters {
		switch f.Op {
		case OpIn:
			out[f.Field] = bson.M{"$in": f.Value}
		default:
			// Equality also covers array-contains: mongo matches array
			// fields element-wise.
			out[f.Field] = f.Value
		}
	}
	return out
}

// toUpdateDoc translates field transforms to their native operators.
func toUpdateDoc(fields Document) bson.M {
	set := bson.M{}
	addToSet := bson.M{}
	pull := bson.M{}
	inc := bson.M{}

	for key, value := range fields {
		switch t := value.(type) {
		case UnionTransform:
			addToSet[key] = bson.M{"$each": t.Values}
		case RemoveTransform:
			pull[key] = bson.M{"$in": t.Values}
		case IncTransform:
			inc[key] = t.Delta
		default:
			set[key] = value
		}
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(addToSet) > 0 {
		update["$addToSet"] = addToSet
	}
	if len(pull) > 0 {
		update["$pull"] = pull
	}
	if len(inc) > 0 {
		update["$inc"] = inc
	}
	if len(update) == 0 {
		update["$set"] = bson.M{}
	}
	return update
}

// toBSONDoc resolves transforms against an empty document, matching Set's
// full-replacement semantics.
func toBSONDoc(doc Document) bson.M {
	out := bson.M{}
	for key, value := range doc {
		switch t := value.(type) {
		case UnionTransform:
			out[key] = t.Values
		case RemoveTransform:
			out[key] = []any{}
		case IncTransform:
			out[key] = t.Delta
		default:
			out[key] = value
		}
	}
	return out
}

func fromBSON(raw bson.M) Document {
	doc := make(Document, len(raw))
	for key, value := range raw {
		if key == "_id" {
			continue
		}
		doc[key] = fromBSONValue(value)
	}
	return doc
}

func fromBSONValue(value any) any {
	switch v := value.(type) {
	case primitive.A:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = fromBSONValue(item)
		}
		return out
	case primitive.DateTime:
		return v.Time().UTC()
	case bson.M:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = fromBSONValue(item)
		}
		return out
	default:
		return value
	}
}
