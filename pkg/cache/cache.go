package cache

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrKeyExists = errors.New("key already exists in cache")
)

// Cache is a weight bounded LRU cache.
type Cache interface {
	// GetWeight returns the total weight of cached entries
	GetWeight() int

	// GetBudget returns the weight budget of the cache
	GetBudget() int

	// Insert adds a new entry, evicting the least recently used entries until
	// the cache is within its budget.
	//
	// Returns ErrKeyExists if the key is already cached.
	Insert(key string, value interface{}, weight int) error

	// Retrieve gets an entry and marks it as most recently used
	Retrieve(key string) (interface{}, bool)

	// Clear removes all entries
	Clear()
}

type entry struct {
	prev, next *entry

	key    string
	value  interface{}
	weight int
}

type cache struct {
	log *logrus.Entry

	mu     sync.Mutex
	head   *entry
	tail   *entry
	lookup map[string]*entry
	weight int
	budget int
}

// NewCache returns a new Cache with the provided weight budget
func NewCache(budget int) Cache {
	return &cache{
		log:    logrus.StandardLogger().WithField("type", "cache"),
		lookup: make(map[string]*entry),
		budget: budget,
	}
}

// GetWeight implements Cache.GetWeight
func (c *cache) GetWeight() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.weight
}

// GetBudget implements Cache.GetBudget
func (c *cache) GetBudget() int {
	return c.budget
}

// Insert implements Cache.Insert
func (c *cache) Insert(key string, value interface{}, weight int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lookup[key]; ok {
		return ErrKeyExists
	}

	e := &entry{key: key, value: value, weight: weight}
	c.pushFront(e)
	c.lookup[key] = e
	c.weight += weight

	for c.weight > c.budget && c.tail != nil {
		evicted := c.tail
		c.unlink(evicted)
		delete(c.lookup, evicted.key)
		c.weight -= evicted.weight

		c.log.WithFields(logrus.Fields{
			"key":          evicted.key,
			"weight":       evicted.weight,
			"spare_weight": c.budget - c.weight,
		}).Trace("evicted cache entry")
	}

	return nil
}

// Retrieve implements Cache.Retrieve
func (c *cache) Retrieve(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup[key]
	if !ok {
		return nil, false
	}

	if e != c.head {
		c.unlink(e)
		c.pushFront(e)
	}

	return e.value, true
}

// Clear implements Cache.Clear
func (c *cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.head = nil
	c.tail = nil
	c.lookup = make(map[string]*entry)
	c.weight = 0
}

func (c *cache) pushFront(e *entry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *cache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}

	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}

	e.prev = nil
	e.next = nil
}
