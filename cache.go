package cleanblog

import (
	"sync"
	"time"
)

// PostCache is an in-memory copy of the post list with a TTL. Every post write
// must call Invalidate.
type PostCache struct {
	mu      sync.RWMutex
	posts   []BlogPost
	byID    map[int64]int
	fetched time.Time
	ttl     time.Duration
	store   *Store
}

// NewPostCache creates a PostCache backed by the given Store.
func NewPostCache(s *Store, ttl time.Duration) *PostCache {
	return &PostCache{store: s, ttl: ttl}
}

func (c *PostCache) valid() bool {
	return c.byID != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.byID = nil
	c.mu.Unlock()
}

func (c *PostCache) load() error {
	if c.valid() {
		return nil
	}
	posts, err := c.store.ListPosts()
	if err != nil {
		return err
	}
	byID := make(map[int64]int, len(posts))
	for i, p := range posts {
		byID[p.ID] = i
	}
	c.posts = posts
	c.byID = byID
	c.fetched = time.Now()
	return nil
}

// ensureLoaded tries a read lock first and only takes the write lock when a
// reload is needed.
func (c *PostCache) ensureLoaded() ([]BlogPost, map[int64]int, error) {
	c.mu.RLock()
	if c.valid() {
		posts, byID := c.posts, c.byID
		c.mu.RUnlock()
		return posts, byID, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(); err != nil {
		return nil, nil, err
	}
	return c.posts, c.byID, nil
}

// ListPosts returns every post in insertion order. The slice is shared and
// must not be modified.
func (c *PostCache) ListPosts() ([]BlogPost, error) {
	posts, _, err := c.ensureLoaded()
	return posts, err
}

// GetPost returns a single post by id from the cache.
func (c *PostCache) GetPost(id int64) (BlogPost, error) {
	posts, byID, err := c.ensureLoaded()
	if err != nil {
		return BlogPost{}, err
	}
	i, ok := byID[id]
	if !ok {
		return BlogPost{}, ErrNotFound
	}
	return posts[i], nil
}
