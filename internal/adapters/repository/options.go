// Package repository defines the completed-review store interface and
// errors.
package repository

// storeConfig carries construction-time settings for MapStore.
type storeConfig struct {
	shardCount int
}

// Option applies a configuration option to the MapStore.
type Option func(*storeConfig)

// WithShardCount sets the number of map shards.
func WithShardCount(count int) Option {
	return func(c *storeConfig) {
		if count > 0 {
			c.shardCount = count
		}
	}
}
