// Package handler turns typed request handlers into http.HandlerFunc values.
//
// A HandlerFunc receives a Context (the request context plus the writer) and
// a bound request value, and returns a Response. Binding, rendering and error
// reporting are configured per route through Wrap options:
//
//	errs := handler.NewErrorHandler(log,
//		handler.ErrorMapping{Target: plan.ErrPlanNotFound, Status: handler.ErrNotFound},
//	)
//	r.Get("/plans/active", handler.Wrap(activePlan,
//		handler.WithErrorHandler[handler.Context, struct{}](errs),
//	))
//
// Every error answer is JSON of the form {"error": key, "message": text}.
// ValidationError additionally carries per-field details and always maps to 400.
package handler
