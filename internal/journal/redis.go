package journal

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultStream is the Redis stream entries are appended to.
const DefaultStream = "bankaccount:transactions"

// RedisJournal appends the JSON rendering of each entry to a Redis stream.
type RedisJournal struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisJournal constructs a stream journal. maxLen <= 0 keeps the stream
// untrimmed.
func NewRedisJournal(client *redis.Client, stream string, maxLen int64) *RedisJournal {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisJournal{client: client, stream: stream, maxLen: maxLen}
}

// Record XADDs the entry.
func (j *RedisJournal) Record(ctx context.Context, entry Entry) error {
	args := &redis.XAddArgs{
		Stream: j.stream,
		Values: map[string]any{
			"account_id":  entry.AccountID,
			"transaction": entry.Transaction.String(),
		},
	}
	if j.maxLen > 0 {
		args.MaxLen = j.maxLen
		args.Approx = true
	}
	if err := j.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", j.stream, err)
	}
	return nil
}
