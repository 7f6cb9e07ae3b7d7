package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/stepgraph/pkg/api"
)

// RedisHistoryStore is a HistoryStore backed by Redis.
// It uses a simple key structure:
//
//	<prefix>run:<runID>          => JSON-encoded api.RunSummary
//	<prefix>records:<runID>      => LIST of JSON-encoded records, append order
//	<prefix>idx:wf:<workflowID>  => ZSET of run IDs scored by start time
type RedisHistoryStore struct {
	client redis.UniversalClient
	prefix string
}

var _ HistoryStore = (*RedisHistoryStore)(nil)

// NewRedisHistoryStore creates a RedisHistoryStore.
// prefix is optional but recommended (e.g. "stepgraph:").
func NewRedisHistoryStore(client redis.UniversalClient, prefix string) *RedisHistoryStore {
	if prefix == "" {
		prefix = "stepgraph:"
	}
	return &RedisHistoryStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisHistoryStore) keyRun(id string) string {
	return s.prefix + "run:" + id
}

func (s *RedisHistoryStore) keyRecords(id string) string {
	return s.prefix + "records:" + id
}

func (s *RedisHistoryStore) keyWorkflow(id string) string {
	return s.prefix + "idx:wf:" + id
}

func (s *RedisHistoryStore) SaveRun(ctx context.Context, run api.RunSummary) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keyRun(run.RunID), data, 0)
	pipe.ZAdd(ctx, s.keyWorkflow(run.WorkflowID), redis.Z{
		Score:  float64(run.StartedAt.UnixNano()),
		Member: run.RunID,
	})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisHistoryStore) AppendRecord(ctx context.Context, runID string, rec api.ExecutionRecord) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, s.keyRecords(runID), data).Err()
}

func (s *RedisHistoryStore) ListRecords(ctx context.Context, runID string) ([]api.ExecutionRecord, error) {
	items, err := s.client.LRange(ctx, s.keyRecords(runID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]api.ExecutionRecord, 0, len(items))
	for _, item := range items {
		rec, err := decodeRecord([]byte(item))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *RedisHistoryStore) ListRuns(ctx context.Context, workflowID string) ([]api.RunSummary, error) {
	ids, err := s.client.ZRange(ctx, s.keyWorkflow(workflowID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.keyRun(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	var out []api.RunSummary
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Index entry without payload; skip it.
				continue
			}
			return nil, err
		}
		var run api.RunSummary
		if err := json.Unmarshal(data, &run); err != nil {
			return nil, err
		}
		out = append(out, run)
	}

	// Equal start times keep a stable order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}
