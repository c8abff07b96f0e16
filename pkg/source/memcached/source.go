package memcached

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"

	"github.com/fluxcd/stackdiff/pkg/source"
)

// DefaultExpiry is how long fetched files and listings are cached.
const DefaultExpiry = 5 * time.Minute

type fileKey struct {
	stack, path string
}

func (k fileKey) Key() string {
	return strings.Join([]string{
		"stackdifffilev1", // Bump the version number if the cache format changes
		k.stack,
		k.path,
	}, "|")
}

type contentsKey struct {
	stack, path string
}

func (k contentsKey) Key() string {
	return strings.Join([]string{
		"stackdiffcontentsv1", // Bump the version number if the cache format changes
		k.stack,
		k.path,
	}, "|")
}

// Source caches the files and directory listings of another source.
// Repository metadata is always fetched from the underlying source.
type Source struct {
	source.Source
	Cache  Client
	Expiry time.Duration
	Logger log.Logger
}

var _ source.Source = &Source{}

func NewSource(upstream source.Source, cache Client, expiry time.Duration, logger log.Logger) *Source {
	if expiry == 0 {
		expiry = DefaultExpiry
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Source{
		Source: upstream,
		Cache:  cache,
		Expiry: expiry,
		Logger: logger,
	}
}

func (s *Source) File(ctx context.Context, stack, path string) ([]byte, error) {
	key := fileKey{stack, path}
	if content, err := s.Cache.GetKey(key); err == nil {
		return content, nil
	} else if err != ErrNotCached {
		s.Logger.Log("op", "get", "key", key.Key(), "err", err)
	}

	content, err := s.Source.File(ctx, stack, path)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.SetKey(key, s.Expiry, content); err != nil {
		s.Logger.Log("op", "set", "key", key.Key(), "err", err)
	}
	return content, nil
}

func (s *Source) Contents(ctx context.Context, stack, path string) ([]source.Entry, error) {
	key := contentsKey{stack, path}
	if cached, err := s.Cache.GetKey(key); err == nil {
		var entries []source.Entry
		decodeErr := json.Unmarshal(cached, &entries)
		if decodeErr == nil {
			return entries, nil
		}
		s.Logger.Log("op", "decode", "key", key.Key(), "err", decodeErr)
	} else if err != ErrNotCached {
		s.Logger.Log("op", "get", "key", key.Key(), "err", err)
	}

	entries, err := s.Source.Contents(ctx, stack, path)
	if err != nil {
		return nil, err
	}
	bytes, err := json.Marshal(entries)
	if err != nil {
		return nil, errors.Wrap(err, "encoding directory listing for cache")
	}
	if err := s.Cache.SetKey(key, s.Expiry, bytes); err != nil {
		s.Logger.Log("op", "set", "key", key.Key(), "err", err)
	}
	return entries, nil
}
