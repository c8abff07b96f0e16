// +build integration

package memcached

import (
	"flag"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	memcachedIPs = flag.String("memcached-ips", "127.0.0.1:11211", "space-separated host:port values for memcached to connect to")
)

type testKey string

func (t testKey) Key() string {
	return string(t)
}

func TestMemcache_ReadWrite(t *testing.T) {
	mc, err := NewFixedServerMemcacheClient(MemcacheConfig{
		Timeout:        time.Second,
		UpdateInterval: 1 * time.Minute,
		Logger:         log.With(log.NewLogfmtLogger(os.Stderr), "component", "memcached"),
	}, strings.Fields(*memcachedIPs)...)
	require.NoError(t, err)

	val := []byte("a: 1\n")
	require.NoError(t, mc.SetKey(testKey("test"), time.Minute, val))

	cached, err := mc.GetKey(testKey("test"))
	require.NoError(t, err)
	assert.Equal(t, val, cached)

	_, err = mc.GetKey(testKey("absent"))
	assert.Equal(t, ErrNotCached, err)
}
