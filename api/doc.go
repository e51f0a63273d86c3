// Package api exposes the billing layer over HTTP.
//
// Routes:
//
//	POST /payment/{provider}-notification   provider webhook, raw body + signature header
//	POST /subscriptions/init                {"storage": 64, "bandwidth": 128} -> {"url": ...}
//	POST /subscriptions/cancel              -> {"cancelAt": ...}
//	GET  /plans/active                      active plan or the FREE_PLAN placeholder
//	GET  /plans/config                      public price list
//	GET  /usage-metrics                     current usage metrics
//	GET  /health                            readiness of registered checks
//	GET  /metrics                           Prometheus exposition
//
// Authentication is done upstream by the gateway, which forwards the caller
// in the X-Organization-Id and X-User-Email headers. Routes that act on an
// organization answer 401 when the headers are missing or malformed.
package api
