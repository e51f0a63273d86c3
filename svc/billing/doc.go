// Package billing processes payment provider notifications and starts
// subscriptions.
//
// A checkout creates a pending plan and a PENDING payment keyed by a fresh
// merchant transaction id. When the provider reports the completed checkout
// the payment becomes SUCCESS, any active plan is cancelled as upgraded, the
// new plan is activated, usage quotas follow the plan and a postage batch is
// bought or grown in the background. Renewal invoices are recorded as their
// own payment keyed by the provider invoice id, so a redelivered invoice is
// a no-op.
package billing
