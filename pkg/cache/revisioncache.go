// Package cache provides the revision-scoped lookups shared between the
// orchestrator and the file workers.
//
// The cache is read-mostly: the orchestrator warms the live file-attributes
// entry once per revision before any file worker starts, and workers only
// ever read. Entries expire rather than being invalidated.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/timetabler/timetabler/pkg/redis_client"
	"github.com/timetabler/timetabler/pkg/transmodel"
)

const liveFileAttributesTTL = 1 * time.Hour

// stringCache is the slice of gocache's API the revision cache needs.
type stringCache interface {
	Get(ctx context.Context, key any) (string, error)
	Set(ctx context.Context, key any, object string, options ...store.Option) error
}

type RevisionCache struct {
	Cache stringCache
}

func (c *RevisionCache) Setup() {
	redisStore := redisstore.NewRedis(redis_client.Client, store.WithExpiration(liveFileAttributesTTL))

	c.Cache = cache.New[string](redisStore)
}

func liveFileAttributesKey(revisionID int) string {
	return fmt.Sprintf("revision-%d-live_txc_file_attributes", revisionID)
}

// WarmLiveFileAttributes stores the live file-attributes rows for a revision.
func (c *RevisionCache) WarmLiveFileAttributes(ctx context.Context, revisionID int, rows []transmodel.TXCFileAttributes) error {
	encoded, err := json.Marshal(rows)
	if err != nil {
		return err
	}

	return c.Cache.Set(ctx, liveFileAttributesKey(revisionID), string(encoded))
}

// LiveFileAttributes returns the cached rows for a revision, or (nil, false)
// on a miss. Workers fall back to the database on a miss, never re-warm.
func (c *RevisionCache) LiveFileAttributes(ctx context.Context, revisionID int) ([]transmodel.TXCFileAttributes, bool) {
	value, err := c.Cache.Get(ctx, liveFileAttributesKey(revisionID))
	if err != nil {
		return nil, false
	}

	var rows []transmodel.TXCFileAttributes
	if err := json.Unmarshal([]byte(value), &rows); err != nil {
		return nil, false
	}

	return rows, true
}
