package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/docreview-backend/internal/repos"
)

type cacheEntry struct {
	content string
	expires time.Time
}

// docCache memoizes document text per file so a review touching the same
// file across many columns loads it once. Entries expire after ttl.
type docCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[uuid.UUID]cacheEntry
	repo    repos.DocumentTextRepo
}

func newDocCache(repo repos.DocumentTextRepo, ttl time.Duration) *docCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &docCache{
		ttl:     ttl,
		entries: make(map[uuid.UUID]cacheEntry),
		repo:    repo,
	}
}

func (dc *docCache) Get(ctx context.Context, fileID uuid.UUID) (string, error) {
	now := time.Now()

	dc.mu.Lock()
	if entry, ok := dc.entries[fileID]; ok && now.Before(entry.expires) {
		dc.mu.Unlock()
		return entry.content, nil
	}
	dc.mu.Unlock()

	doc, err := dc.repo.GetByFileID(ctx, nil, fileID)
	if err != nil {
		return "", err
	}

	dc.mu.Lock()
	dc.entries[fileID] = cacheEntry{content: doc.Content, expires: now.Add(dc.ttl)}
	// opportunistic eviction of expired entries
	for id, entry := range dc.entries {
		if now.After(entry.expires) {
			delete(dc.entries, id)
		}
	}
	dc.mu.Unlock()

	return doc.Content, nil
}

func (dc *docCache) Invalidate(fileID uuid.UUID) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	delete(dc.entries, fileID)
}
