package persistence

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/petrijr/stepgraph/pkg/api"
)

const mongoTimeout = 5 * time.Second

// MongoHistoryStore is a HistoryStore backed by MongoDB. Run summaries and
// execution records live in two collections of the same database.
type MongoHistoryStore struct {
	runs    *mongo.Collection
	records *mongo.Collection
}

var _ HistoryStore = (*MongoHistoryStore)(nil)

// NewMongoHistoryStore creates a Mongo-backed history store.
// dbName defaults to "stepgraph" if empty. Collections are named "runs" and
// "run_records".
func NewMongoHistoryStore(client *mongo.Client, dbName string) *MongoHistoryStore {
	if dbName == "" {
		dbName = "stepgraph"
	}
	db := client.Database(dbName)
	return &MongoHistoryStore{
		runs:    db.Collection("runs"),
		records: db.Collection("run_records"),
	}
}

type mongoRecordDoc struct {
	RunID string    `bson:"run_id"`
	Row   recordRow `bson:",inline"`
}

func (s *MongoHistoryStore) SaveRun(ctx context.Context, run api.RunSummary) error {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	_, err := s.runs.ReplaceOne(ctx, bson.M{"_id": run.RunID}, run, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoHistoryStore) AppendRecord(ctx context.Context, runID string, rec api.ExecutionRecord) error {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	row, err := toRow(rec)
	if err != nil {
		return err
	}
	_, err = s.records.InsertOne(ctx, mongoRecordDoc{RunID: runID, Row: row})
	return err
}

func (s *MongoHistoryStore) ListRecords(ctx context.Context, runID string) ([]api.ExecutionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	// ObjectIDs generated by the driver grow monotonically, so _id order is
	// insertion order.
	cur, err := s.records.Find(ctx, bson.M{"run_id": runID}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []api.ExecutionRecord
	for cur.Next(ctx) {
		var doc mongoRecordDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		rec, err := fromRow(doc.Row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, cur.Err()
}

func (s *MongoHistoryStore) ListRuns(ctx context.Context, workflowID string) ([]api.RunSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.runs.Find(ctx, bson.M{"workflow_id": workflowID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []api.RunSummary
	for cur.Next(ctx) {
		var run api.RunSummary
		if err := cur.Decode(&run); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, cur.Err()
}
