package repository

import (
	"context"
	"errors"
	"time"

	"food-order-service/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound = errors.New("orden no encontrada")
	// ErrConflict: otra request modificó la orden entre la lectura y la escritura.
	ErrConflict = errors.New("la orden fue modificada por otra operación")
)

// Mongo implementation
type MongoOrderRepository struct {
	col *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{col: db.Collection("orders")}
}

// EnsureIndexes crea el índice único de order_id y los de listados.
func (m *MongoOrderRepository) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "order_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "placed_at", Value: -1}}},
		{Keys: bson.D{{Key: "restaurant_id", Value: 1}, {Key: "placed_at", Value: -1}}},
		{Keys: bson.D{{Key: "postal_code", Value: 1}, {Key: "status", Value: 1}}},
	})
	return err
}

func (m *MongoOrderRepository) Insert(ctx context.Context, o *model.Order) error {
	o.Version = 1
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}
	_, err := m.col.InsertOne(ctx, o)
	return err
}

func (m *MongoOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	var res model.Order
	err := m.col.FindOne(ctx, bson.M{"order_id": orderID}).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Update reemplaza el documento sólo si nadie lo tocó desde que se leyó
// (mismo version). Ítems, total y estado se escriben en una sola operación.
func (m *MongoOrderRepository) Update(ctx context.Context, o *model.Order) error {
	filter := bson.M{"order_id": o.OrderID, "version": o.Version}

	next := *o
	next.Version = o.Version + 1

	res, err := m.col.ReplaceOne(ctx, filter, &next)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := m.col.CountDocuments(ctx, bson.M{"order_id": o.OrderID})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}

	o.Version = next.Version
	return nil
}

func (m *MongoOrderRepository) FindByUserID(ctx context.Context, userID string) ([]*model.Order, error) {
	return m.find(ctx, bson.M{"user_id": userID})
}

func (m *MongoOrderRepository) FindByRestaurantID(ctx context.Context, restaurantID string) ([]*model.Order, error) {
	return m.find(ctx, bson.M{"restaurant_id": restaurantID})
}

func (m *MongoOrderRepository) FindByPostalCode(ctx context.Context, postalCode string, statuses []model.Status) ([]*model.Order, error) {
	filter := bson.M{"postal_code": postalCode}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	return m.find(ctx, filter)
}

func (m *MongoOrderRepository) find(ctx context.Context, filter bson.M) ([]*model.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "placed_at", Value: -1}})
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*model.Order{}
	for cur.Next(ctx) {
		var v model.Order
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, cur.Err()
}
