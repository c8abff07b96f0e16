/* This package caches documents fetched from a source in memcached.

Files and directory listings are stored with a fixed expiry. memcached
may evict them sooner under memory pressure; that only costs a cache
miss and a fetch from the source.

*/
package memcached

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"
)

const (
	// The minimum expiry given to an entry.
	MinExpiry = time.Minute
	// memcached refuses longer keys.
	maxKeyLength = 250
)

var ErrNotCached = errors.New("item not in cache")

// Keyer provides the key under which to store the data.
type Keyer interface {
	Key() string
}

// Client is the part of a cache used by the caching source.
type Client interface {
	GetKey(k Keyer) ([]byte, error)
	SetKey(k Keyer, expiry time.Duration, v []byte) error
}

// MemcacheClient is a memcache client that gets its server list from SRV
// records, and periodically updates that ServerList.
type MemcacheClient struct {
	client     *memcache.Client
	serverList *memcache.ServerList
	hostname   string
	service    string
	logger     log.Logger

	quit chan struct{}
	wait sync.WaitGroup
}

var _ Client = &MemcacheClient{}

// MemcacheConfig defines how a MemcacheClient should be constructed.
type MemcacheConfig struct {
	Host           string
	Service        string
	Timeout        time.Duration
	UpdateInterval time.Duration
	Logger         log.Logger
	MaxIdleConns   int
}

func NewMemcacheClient(config MemcacheConfig) *MemcacheClient {
	var servers memcache.ServerList
	client := memcache.NewFromSelector(&servers)
	client.Timeout = config.Timeout
	client.MaxIdleConns = config.MaxIdleConns

	newClient := &MemcacheClient{
		client:     client,
		serverList: &servers,
		hostname:   config.Host,
		service:    config.Service,
		logger:     config.Logger,
		quit:       make(chan struct{}),
	}

	if err := newClient.updateFromSRVRecords(); err != nil {
		config.Logger.Log("err", errors.Wrapf(err, "setting memcache servers from SRV records for %q", config.Host))
	}

	newClient.wait.Add(1)
	go newClient.updateLoop(config.UpdateInterval, newClient.updateFromSRVRecords)
	return newClient
}

// NewFixedServerMemcacheClient does not use DNS; it accepts a static
// list of servers.
func NewFixedServerMemcacheClient(config MemcacheConfig, addresses ...string) (*MemcacheClient, error) {
	var servers memcache.ServerList
	if err := servers.SetServers(addresses...); err != nil {
		return nil, errors.Wrapf(err, "setting memcache servers %v", addresses)
	}
	client := memcache.NewFromSelector(&servers)
	client.Timeout = config.Timeout
	client.MaxIdleConns = config.MaxIdleConns

	return &MemcacheClient{
		client:     client,
		serverList: &servers,
		hostname:   config.Host,
		service:    config.Service,
		logger:     config.Logger,
		quit:       make(chan struct{}),
	}, nil
}

// GetKey gets the value stored at a key.
func (c *MemcacheClient) GetKey(k Keyer) ([]byte, error) {
	item, err := c.client.Get(memcacheKey(k))
	if err != nil {
		if err == memcache.ErrCacheMiss {
			// Don't log on cache miss
			return nil, ErrNotCached
		}
		c.logger.Log("err", errors.Wrap(err, "fetching from memcache"))
		return nil, err
	}
	return item.Value, nil
}

// SetKey stores a value at a key, to expire after the given duration
// (or MinExpiry, if that is longer).
func (c *MemcacheClient) SetKey(k Keyer, expiry time.Duration, v []byte) error {
	if expiry < MinExpiry {
		expiry = MinExpiry
	}
	if err := c.client.Set(&memcache.Item{
		Key:        memcacheKey(k),
		Value:      v,
		Expiration: int32(expiry.Seconds()),
	}); err != nil {
		c.logger.Log("err", errors.Wrap(err, "storing in memcache"))
		return err
	}
	return nil
}

// Stop the memcache client.
func (c *MemcacheClient) Stop() {
	close(c.quit)
	c.wait.Wait()
}

func (c *MemcacheClient) updateLoop(updateInterval time.Duration, update func() error) {
	defer c.wait.Done()
	ticker := time.NewTicker(updateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := update(); err != nil {
				c.logger.Log("err", errors.Wrap(err, "updating memcache servers"))
			}
		case <-c.quit:
			return
		}
	}
}

// updateFromSRVRecords sets the memcache server list from SRV records.
// SRV priority & weight are ignored.
func (c *MemcacheClient) updateFromSRVRecords() error {
	_, addrs, err := net.LookupSRV(c.service, "tcp", c.hostname)
	if err != nil {
		return err
	}
	var servers []string
	for _, srv := range addrs {
		servers = append(servers, fmt.Sprintf("%s:%d", srv.Target, srv.Port))
	}
	// ServerList maps keys to the index of a server, so the order has
	// to agree between nodes.
	sort.Strings(servers)
	return c.serverList.SetServers(servers...)
}

// memcacheKey hashes keys memcached would reject: those that are too
// long or contain whitespace or control characters.
func memcacheKey(k Keyer) string {
	key := k.Key()
	if len(key) <= maxKeyLength && strings.IndexFunc(key, func(r rune) bool { return r <= ' ' || r == 0x7f }) < 0 {
		return key
	}
	sum := sha256.Sum256([]byte(key))
	return "sha256|" + hex.EncodeToString(sum[:])
}
