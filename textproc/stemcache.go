package textproc

import (
    "fmt"

    lru "github.com/hashicorp/golang-lru/v2"
    "github.com/kljensen/snowball/english"
)

const defaultStemCacheSize = 4096

// StemCache memoizes Snowball stemming results. Police narratives
// reuse a small vocabulary heavily, so most lookups hit the cache.
type StemCache struct {
    cache *lru.Cache[string, string]
}

func NewStemCache(size int) (*StemCache, error) {
    if size <= 0 {
        size = defaultStemCacheSize
    }
    cache, err := lru.New[string, string](size)
    if err != nil {
        return nil, fmt.Errorf("create stem cache: %w", err)
    }
    return &StemCache{cache: cache}, nil
}

// Stem returns the English Snowball stem of word. The input must
// already be lowercased.
func (s *StemCache) Stem(word string) string {
    if stem, ok := s.cache.Get(word); ok {
        return stem
    }
    stem := english.Stem(word, true)
    s.cache.Add(word, stem)
    return stem
}

// Len reports how many distinct words are currently cached.
func (s *StemCache) Len() int {
    return s.cache.Len()
}
