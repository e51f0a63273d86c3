// Package binder decodes HTTP request bodies into typed request structs.
//
// A binder has the signature func(r *http.Request, v any) error so it can be
// plugged into handler.Wrap through handler.WithBinders:
//
//	type InitRequest struct {
//		Storage   int `json:"storage"`
//		Bandwidth int `json:"bandwidth"`
//	}
//
//	r.Post("/subscriptions/init", handler.Wrap(initSubscription,
//		handler.WithBinders[handler.Context, InitRequest](binder.JSON()),
//	))
//
// JSON decoding is strict: unknown fields, trailing data and bodies larger
// than DefaultMaxJSONSize are rejected. Errors wrap one of the package
// sentinels so callers can map them to a 400 response.
package binder
