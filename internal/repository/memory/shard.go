package memory

import "github.com/cespare/xxhash/v2"

const shardCount = 32

func shardIndex(key string) int {
	return int(xxhash.Sum64String(key) % shardCount)
}
