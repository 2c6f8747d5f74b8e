package store

import (
	"hash/fnv"
	"sort"
	"sync"
)

const lockShards = 256

// keyLock serialises operations per record identity. Upsert and delete for
// the same key always contend on the same shard, so a delete can never
// interleave with an in-flight upsert of that record. Unrelated keys almost
// always land on different shards and proceed in parallel.
type keyLock struct {
	shards [lockShards]sync.Mutex
}

func shardFor(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % lockShards
}

// lock acquires the shard for one key and returns its unlock func.
func (l *keyLock) lock(key string) func() {
	s := shardFor(key)
	l.shards[s].Lock()
	return l.shards[s].Unlock
}

// lockKeys acquires every shard covering the given keys, in ascending shard
// order so concurrent batch deletes cannot deadlock each other.
func (l *keyLock) lockKeys(keys []string) func() {
	seen := make(map[uint32]struct{}, len(keys))
	shards := make([]uint32, 0, len(keys))
	for _, k := range keys {
		s := shardFor(k)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		shards = append(shards, s)
	}
	sort.Slice(shards, func(i, j int) bool { return shards[i] < shards[j] })
	for _, s := range shards {
		l.shards[s].Lock()
	}
	return func() {
		for i := len(shards) - 1; i >= 0; i-- {
			l.shards[shards[i]].Unlock()
		}
	}
}
