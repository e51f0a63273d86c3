// Package clientip resolves the originating client address of requests that
// reach the service through the API gateway.
//
// Headers are examined in order until one carries a valid address:
// X-Forwarded-For (first valid entry), X-Real-IP, then RemoteAddr. The
// middleware stores the result in the request context so webhook and error
// logs can record it.
package clientip
