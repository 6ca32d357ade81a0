package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/dataset"
)

// defaultKeyPrefix is a hash tag, so every key the scripts touch maps to
// one Redis Cluster slot.
const defaultKeyPrefix = "{chemviz}"

// saveScript writes the dataset and its index entry, then evicts the oldest
// index members until the index holds at most ARGV[5] entries. ZSET members
// with equal scores sort lexicographically, so ties evict the lower ID.
// The just-written ID (ARGV[2]) is never evicted.
//
// KEYS[1] index zset; ARGV: key prefix, id, payload, score, max.
var saveScript = redis.NewScript(`
local index = KEYS[1]
local prefix = ARGV[1]
local id = ARGV[2]
redis.call('SET', prefix .. id, ARGV[3])
redis.call('ZADD', index, ARGV[4], id)
local limit = tonumber(ARGV[5])
local evicted = {}
while redis.call('ZCARD', index) > limit do
  local victims = redis.call('ZRANGE', index, 0, 1)
  local victim = victims[1]
  if victim == id then
    victim = victims[2]
  end
  redis.call('ZREM', index, victim)
  redis.call('DEL', prefix .. victim)
  table.insert(evicted, victim)
end
return evicted
`)

// listScript reads the newest ARGV[2] datasets (all if <= 0) in one atomic step.
var listScript = redis.NewScript(`
local limit = tonumber(ARGV[2])
local stop = -1
if limit > 0 then
  stop = limit - 1
end
local ids = redis.call('ZREVRANGE', KEYS[1], 0, stop)
local out = {}
for _, id in ipairs(ids) do
  local v = redis.call('GET', ARGV[1] .. id)
  if v then
    table.insert(out, v)
  end
end
return out
`)

// deleteScript removes one dataset and its index entry; returns 0 if absent.
var deleteScript = redis.NewScript(`
local removed = redis.call('ZREM', KEYS[1], ARGV[2])
redis.call('DEL', ARGV[1] .. ARGV[2])
return removed
`)

// RedisStore implements Store on Redis so several server instances share one
// bounded history. Dataset JSON lives under "{chemviz}:dataset:<id>" and the
// sorted set "{chemviz}:datasets" indexes IDs by upload time in microseconds.
// Writes, deletes and listings run as Lua scripts and are therefore atomic
// on the server.
//
// The scripts derive dataset keys from the prefix argument rather than
// declaring them in KEYS, since eviction victims are only known inside the
// script. The shared "{chemviz}" hash tag keeps those keys in the index's
// cluster slot, which Redis Cluster requires for a script to reach them.
//
// Upload times come from Options.Now on the saving instance. Saves are
// serialized within a process; instances sharing one Redis should keep
// their clocks in sync, as the oldest upload time decides eviction.
type RedisStore struct {
	client   *redis.Client
	opts     Options
	prefix   string
	indexKey string
	mu       sync.RWMutex
	// writeMu orders stamping and the save script within one process.
	writeMu sync.Mutex
}

// NewRedisStore creates a new Redis-backed store.
//
// Parameters:
//   - addr: Redis server address (e.g., "localhost:6379")
//   - password: Redis password (empty string for no auth)
//   - db: Redis database number (typically 0)
//   - opts: retention options
//
// Returns an error if the connection to Redis fails or if parameters are invalid.
func NewRedisStore(addr, password string, db int, opts Options) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if db < 0 {
		return nil, errors.New("redis database number must be >= 0")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisStore{
		client:   client,
		opts:     opts.withDefaults(),
		prefix:   datasetKeyPrefix(defaultKeyPrefix),
		indexKey: indexKey(defaultKeyPrefix),
	}, nil
}

func datasetKeyPrefix(base string) string { return base + ":dataset:" }

func indexKey(base string) string { return base + ":datasets" }

// Save stores the dataset and runs the eviction sweep in a single script.
func (r *RedisStore) Save(ctx context.Context, name string, summary dataset.Summary) (dataset.Dataset, error) {
	if name == "" {
		return dataset.Dataset{}, errEmptyName
	}

	client, err := r.conn(ctx)
	if err != nil {
		return dataset.Dataset{}, err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	ds := r.opts.newDataset(name, summary)
	data, err := json.Marshal(ds)
	if err != nil {
		return dataset.Dataset{}, fmt.Errorf("failed to marshal dataset: %w", err)
	}

	score := strconv.FormatInt(ds.UploadedAt.UnixMicro(), 10)
	evicted, err := saveScript.Run(ctx, client, []string{r.indexKey},
		r.prefix, ds.ID, data, score, r.opts.MaxDatasets).StringSlice()
	if err != nil {
		return dataset.Dataset{}, fmt.Errorf("failed to store dataset in redis: %w", err)
	}

	r.opts.notifyEvicted(evicted)
	return ds, nil
}

// Get retrieves one dataset by ID.
func (r *RedisStore) Get(ctx context.Context, id string) (dataset.Dataset, error) {
	client, err := r.conn(ctx)
	if err != nil {
		return dataset.Dataset{}, err
	}
	if id == "" {
		return dataset.Dataset{}, &dataset.NotFoundError{ID: id}
	}

	data, err := client.Get(ctx, r.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return dataset.Dataset{}, &dataset.NotFoundError{ID: id}
		}
		return dataset.Dataset{}, fmt.Errorf("failed to get dataset from redis: %w", err)
	}

	return decodeDataset(data)
}

// ListRecent returns the newest datasets first.
func (r *RedisStore) ListRecent(ctx context.Context, limit int) ([]dataset.Dataset, error) {
	client, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := listScript.Run(ctx, client, []string{r.indexKey}, r.prefix, limit).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets from redis: %w", err)
	}

	out := make([]dataset.Dataset, 0, len(raw))
	for _, item := range raw {
		ds, err := decodeDataset([]byte(item))
		if err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, nil
}

// Delete removes one dataset and its index entry.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	client, err := r.conn(ctx)
	if err != nil {
		return err
	}

	removed, err := deleteScript.Run(ctx, client, []string{r.indexKey}, r.prefix, id).Int()
	if err != nil {
		return fmt.Errorf("failed to delete dataset from redis: %w", err)
	}
	if removed == 0 {
		return &dataset.NotFoundError{ID: id}
	}
	return nil
}

// Len returns the number of indexed datasets.
func (r *RedisStore) Len(ctx context.Context) (int64, error) {
	client, err := r.conn(ctx)
	if err != nil {
		return 0, err
	}
	return client.ZCard(ctx, r.indexKey).Result()
}

// conn returns the client, or redis.ErrClosed after Close.
func (r *RedisStore) conn(ctx context.Context) (*redis.Client, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.client == nil {
		return nil, redis.ErrClosed
	}
	return r.client, nil
}

// Close closes the Redis client connection.
// It is safe to call multiple times (idempotent).
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return nil
	}

	err := r.client.Close()
	r.client = nil
	if err != nil && errors.Is(err, redis.ErrClosed) {
		return nil
	}

	return err
}

// Ping checks the Redis connection health.
// Returns an error if the connection is unavailable.
func (r *RedisStore) Ping(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.client == nil {
		return redis.ErrClosed
	}
	return r.client.Ping(ctx).Err()
}

func decodeDataset(data []byte) (dataset.Dataset, error) {
	var ds dataset.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return dataset.Dataset{}, fmt.Errorf("failed to unmarshal dataset: %w", err)
	}
	return ds, nil
}
