// Package ratelimiter implements a keyed token bucket.
//
// Buckets live in a Store; MemoryStore keeps them in process and drops the
// ones that have not been touched for an hour. Middleware applies a bucket
// to HTTP routes with a caller-supplied key, e.g. the organization starting
// a checkout:
//
//	bucket, _ := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), cfg)
//	r.With(ratelimiter.Middleware(bucket, orgKey, onLimited)).Post("/subscriptions/init", h)
package ratelimiter
