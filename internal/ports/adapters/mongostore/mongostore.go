package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/forPelevin/mkshorts/internal/types"
)

const (
	Database   = "mkshorts"
	Collection = "runs"
)

// Store mirrors run state documents keyed by run_id.
type Store struct {
	client *mongo.Client
	runs   *mongo.Collection
}

func Connect(ctx context.Context, uri string) (*Store, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &Store{client: client, runs: client.Database(Database).Collection(Collection)}, nil
}

func (s *Store) Record(ctx context.Context, st types.RunState) error {
	_, err := s.runs.UpdateOne(ctx,
		bson.M{"run_id": st.RunID},
		bson.M{"$set": st},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo record run %s: %w", st.RunID, err)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int64) ([]types.RunState, error) {
	cur, err := s.runs.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []types.RunState
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }
