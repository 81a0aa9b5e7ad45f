// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"markov/chain"
)

// RedisClient is the narrow seam RedisBackend depends on, so tests can
// substitute a fake instead of a live server. GoRedisClient is the
// production implementation.
type RedisClient interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// GoRedisClient adapts a *redis.Client to RedisClient, translating the
// client's sentinel redis.Nil into chain.ErrNotFound at the seam so
// callers and fakes only ever need to know one not-found error.
type GoRedisClient struct {
	rdb *redis.Client
}

// NewGoRedisClient wraps rdb.
func NewGoRedisClient(rdb *redis.Client) *GoRedisClient {
	return &GoRedisClient{rdb: rdb}
}

func (c *GoRedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, chain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", key, err)
	}
	return data, nil
}

func (c *GoRedisClient) Set(ctx context.Context, key string, value []byte) error {
	if err := c.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", key, err)
	}
	return nil
}

// RedisBackend stores each tenant's snapshot as a single string value
// keyed markov:snapshot:<tenantId>, with no expiry: a snapshot is live
// state, not a cache entry.
type RedisBackend struct {
	client RedisClient
}

// NewRedisBackend wraps client.
func NewRedisBackend(client RedisClient) *RedisBackend {
	return &RedisBackend{client: client}
}

func snapshotKey(tenantID string) string {
	return "markov:snapshot:" + tenantID
}

func (b *RedisBackend) Load(ctx context.Context, tenantID string) ([]byte, error) {
	return b.client.Get(ctx, snapshotKey(tenantID))
}

func (b *RedisBackend) Save(ctx context.Context, tenantID string, data []byte) error {
	return b.client.Set(ctx, snapshotKey(tenantID), data)
}
