package op

import (
	"fmt"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru"
)

var globCache *lru.ARCCache

func init() {
	var err error
	globCache, err = lru.NewARC(10000)
	if err != nil {
		panic(err)
	}
}

type globCacheEntry struct {
	compiled glob.Glob
	err      error
}

// CompileGlob compiles a redirect URI pattern, with '/' and ':' as separators,
// so "https://*.example.com/cb" does not match "https://evil.com/x.example.com/cb".
// Results, including errors, are cached.
func CompileGlob(s string) (glob.Glob, error) {
	cachedRaw, ok := globCache.Get(s)
	if ok {
		cached := cachedRaw.(globCacheEntry)
		return cached.compiled, cached.err
	}
	compiled, err := glob.Compile(s, '/', ':')
	if err != nil {
		err = fmt.Errorf("invalid redirect uri pattern %q: %w", s, err)
	}
	globCache.Add(s, globCacheEntry{compiled: compiled, err: err})
	return compiled, err
}

// redirectAllowList holds the compiled redirect URI patterns a registration
// must match. An empty list allows every URI.
type redirectAllowList []glob.Glob

func compileRedirectAllowList(patterns []string) (redirectAllowList, error) {
	list := make(redirectAllowList, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := CompileGlob(pattern)
		if err != nil {
			return nil, err
		}
		list = append(list, g)
	}
	return list, nil
}

func (l redirectAllowList) allows(uri string) bool {
	if len(l) == 0 {
		return true
	}
	for _, g := range l {
		if g.Match(uri) {
			return true
		}
	}
	return false
}
