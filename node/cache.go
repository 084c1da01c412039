package node

import (
	"container/list"
	"sync"
)

// childCache is a sharded, bounded handle cache keyed by node_id, standing
// in for a weak reference: get_child only needs "return the live node if
// one is already materialized", and an LRU split into shards, each under
// its own mutex, gives that without requiring runtime finalizers to detect
// garbage collection of a true weak pointer.
const cacheShardCount = 16
const cacheShardCapacity = 256

type childCache struct {
	shards [cacheShardCount]*cacheShard
}

type cacheShard struct {
	mu       sync.Mutex
	capacity int
	items    map[uint64]*list.Element
	order    *list.List
}

type cacheEntry struct {
	nodeID uint64
	node   *Node
}

func newChildCache() *childCache {
	c := &childCache{}
	for i := range c.shards {
		c.shards[i] = &cacheShard{
			capacity: cacheShardCapacity,
			items:    make(map[uint64]*list.Element),
			order:    list.New(),
		}
	}
	return c
}

func (c *childCache) shardFor(nodeID uint64) *cacheShard {
	return c.shards[nodeID%cacheShardCount]
}

func (c *childCache) get(nodeID uint64) (*Node, bool) {
	s := c.shardFor(nodeID)
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.items[nodeID]
	if !ok {
		return nil, false
	}
	s.order.MoveToFront(el)
	return el.Value.(*cacheEntry).node, true
}

func (c *childCache) put(nodeID uint64, n *Node) {
	s := c.shardFor(nodeID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.items[nodeID]; ok {
		el.Value.(*cacheEntry).node = n
		s.order.MoveToFront(el)
		return
	}
	el := s.order.PushFront(&cacheEntry{nodeID: nodeID, node: n})
	s.items[nodeID] = el
	if s.order.Len() > s.capacity {
		oldest := s.order.Back()
		if oldest != nil {
			s.order.Remove(oldest)
			delete(s.items, oldest.Value.(*cacheEntry).nodeID)
		}
	}
}

func (c *childCache) remove(nodeID uint64) {
	s := c.shardFor(nodeID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.items[nodeID]; ok {
		s.order.Remove(el)
		delete(s.items, nodeID)
	}
}
