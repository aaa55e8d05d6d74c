package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/repos"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/types"
)

// Cache wraps a Backend with two layers: a bounded in-process FIFO cache
// keyed by a hash of the input text, and an optional Redis tier (used for
// syllabus-topic embeddings that have no row of their own to persist to).
// Material embeddings are persisted on the material row itself: computed
// once, written back, reused until explicitly invalidated.
type Cache struct {
	log       *logger.Logger
	backend   Backend
	materials repos.MaterialRepo

	mu       sync.Mutex
	entries  map[string][]float32
	order    []string
	capacity int

	rdb      *redis.Client
	redisTTL time.Duration
}

func NewCache(log *logger.Logger, backend Backend, materials repos.MaterialRepo, capacity int, rdb *redis.Client, redisTTL time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1000
	}
	if redisTTL <= 0 {
		redisTTL = 24 * time.Hour
	}
	return &Cache{
		log:       log.With("component", "EmbeddingCache"),
		backend:   backend,
		materials: materials,
		entries:   make(map[string][]float32, capacity),
		order:     make([]string, 0, capacity),
		capacity:  capacity,
		rdb:       rdb,
		redisTTL:  redisTTL,
	}
}

func (c *Cache) Backend() Backend { return c.backend }

func textKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) memGet(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vec, ok := c.entries[key]
	return vec, ok
}

// memPut inserts an entry and evicts the oldest one once capacity is
// exceeded. Eviction is FIFO, not LRU: hits do not refresh position.
func (c *Cache) memPut(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; exists {
		return
	}
	c.entries[key] = vec
	c.order = append(c.order, key)
	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// EmbedText resolves text through memory, then Redis, then the backend,
// populating the missed layers on the way back.
func (c *Cache) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return ZeroVector(c.backend.Dimensions()), nil
	}
	key := textKey(text)

	if vec, ok := c.memGet(key); ok {
		return vec, nil
	}

	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, "emb:"+key).Bytes()
		if err == nil {
			var vec []float32
			if jErr := json.Unmarshal(raw, &vec); jErr == nil && len(vec) > 0 {
				c.memPut(key, vec)
				return vec, nil
			}
		} else if err != redis.Nil {
			c.log.Warn("Redis embedding lookup failed, falling through", "error", err)
		}
	}

	vec, err := c.backend.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.memPut(key, vec)

	if c.rdb != nil {
		if raw, jErr := json.Marshal(vec); jErr == nil {
			if sErr := c.rdb.Set(ctx, "emb:"+key, raw, c.redisTTL).Err(); sErr != nil {
				c.log.Warn("Redis embedding store failed", "error", sErr)
			}
		}
	}
	return vec, nil
}

// MaterialEmbedding returns the persisted embedding for a material,
// computing and writing it back on first use. Under concurrent access the
// write-back is best effort: duplicated computation wastes a call but
// never corrupts.
func (c *Cache) MaterialEmbedding(ctx context.Context, tx *gorm.DB, m *types.Material) ([]float32, error) {
	if len(m.Embedding) > 0 {
		var vec []float32
		if err := json.Unmarshal(m.Embedding, &vec); err == nil && len(vec) > 0 {
			return vec, nil
		}
		c.log.Warn("Stored embedding unreadable, recomputing", "material_id", m.ID)
	}

	vec, err := c.EmbedText(ctx, ComposeMaterialText(m))
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(vec)
	if err != nil {
		return nil, fmt.Errorf("encode embedding: %w", err)
	}
	if err := c.materials.UpdateEmbedding(ctx, tx, m.ID, datatypes.JSON(raw)); err != nil {
		return nil, fmt.Errorf("persist embedding: %w", err)
	}
	m.Embedding = datatypes.JSON(raw)
	return vec, nil
}

// TopicEmbedding embeds a syllabus topic through the cache layers only;
// topics carry no embedding column.
func (c *Cache) TopicEmbedding(ctx context.Context, topic *types.SyllabusTopic) ([]float32, error) {
	return c.EmbedText(ctx, ComposeTopicText(topic))
}

// Invalidate drops any cached vector for the given text, forcing the next
// caller back to the backend.
func (c *Cache) Invalidate(ctx context.Context, text string) {
	key := textKey(text)
	c.mu.Lock()
	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		for i, k := range c.order {
			if k == key {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
	c.mu.Unlock()
	if c.rdb != nil {
		_ = c.rdb.Del(ctx, "emb:"+key).Err()
	}
}

// Len reports the in-memory entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
