package events

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// NewRedis creates the Redis client used for cross-process event fanout.
func NewRedis(addr, password string, db int) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	log.Printf("[events] redis client created (addr: %s)", addr)
	return rdb
}

// RedisBus publishes each event as JSON to the channel "apipanel:<name>"
// and then forwards it to the wrapped bus, so in-process subscribers keep
// working when Redis is down.
type RedisBus struct {
	rdb  *redis.Client
	next Bus
}

func NewRedisBus(rdb *redis.Client, next Bus) *RedisBus {
	return &RedisBus{rdb: rdb, next: next}
}

func (b *RedisBus) Publish(ctx context.Context, e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		log.Printf("[events] marshal %s: %v", e.Name, err)
	} else if err := b.rdb.Publish(ctx, "apipanel:"+e.Name, payload).Err(); err != nil {
		log.Printf("[events] publish %s: %v", e.Name, err)
	}
	if b.next != nil {
		b.next.Publish(ctx, e)
	}
}
