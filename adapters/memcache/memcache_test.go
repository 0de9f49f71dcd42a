package memcache_test

import (
	"testing"

	"github.com/drillsoft/sectionflow"
	"github.com/drillsoft/sectionflow/adapters/adaptertest"
	"github.com/drillsoft/sectionflow/adapters/memcache"
)

func TestStore(t *testing.T) {
	adaptertest.RunCacheStoreTest(t, func() sectionflow.CacheStore {
		return memcache.New()
	})
}
