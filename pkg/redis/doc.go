// Package redis wraps the go-redis v9 client with the pieces the service
// needs from Redis: a retrying Connect, a health check and a TTL based
// Deduplicator for payment provider events.
//
// Redis is optional. When no connection URL is configured, Config.Enabled
// reports false and the binary runs without deduplication, relying on the
// idempotent payment and plan transitions in Postgres alone.
//
// # Architecture
//
// Connect parses the URL with redis.ParseURL and pings the server, retrying
// every RetryInterval until RetryAttempts run out or ConnectTimeout elapses.
//
// Deduplicator claims keys with SET NX and a TTL. Claim reports whether the
// key was new; Release deletes it so that a delivery whose processing failed
// can be retried by the provider. Keys are namespaced with KeyPrefix and a
// "dedup:" segment.
//
// # Usage
//
//	import "github.com/swarmdock/backend/pkg/redis"
//
//	cfg := redis.Config{
//	    ConnectionURL:  "redis://localhost:6379/0",
//	    RetryAttempts:  3,
//	    RetryInterval:  2 * time.Second,
//	    ConnectTimeout: 30 * time.Second,
//	    DedupTTL:       7 * 24 * time.Hour,
//	    KeyPrefix:      "swarmdock:",
//	}
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	dedup := redis.NewDeduplicator(client, cfg)
//	fresh, err := dedup.Claim(ctx, "stripe:evt_123")
//	switch {
//	case err != nil:
//	    return err
//	case !fresh:
//	    return nil // already handled
//	}
//
// Register the health check next to the database one:
//
//	checks = append(checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)})
//
// # Configuration
//
// REDIS_URL enables the integration. REDIS_RETRY_ATTEMPTS,
// REDIS_RETRY_INTERVAL and REDIS_CONNECT_TIMEOUT control Connect.
// REDIS_DEDUP_TTL sets how long event keys are remembered (seven days by
// default) and REDIS_KEY_PREFIX namespaces every key.
//
// # Errors
//
// Errors are joined with package sentinels such as ErrRedisNotReady,
// ErrHealthcheckFailed and ErrDedupUnavailable, so callers can use
// errors.Is and still see the go-redis cause. Claim and Release reject an
// empty key with ErrEmptyKey.
//
// # Testing
//
// Tests run the Deduplicator against github.com/alicebob/miniredis/v2, which
// also allows fast-forwarding time to exercise key expiry.
//
// # See Also
//
//   - https://github.com/redis/go-redis
package redis
