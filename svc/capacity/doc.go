// Package capacity provisions and maintains the postage batch that backs an
// organization's storage quota.
//
// A batch is bought for PurchaseDays when a plan is first paid and topped up
// for RenewalDays (and diluted when the plan grew) on every renewal or
// upgrade. Failures are never retried automatically: they are persisted as
// the organization's batch status and reported through the alert channel so
// an operator can intervene.
//
// Status changes follow a fixed table:
//
//	"" | FAILED_TO_CREATE | REMOVED --purchase--> CREATING
//	CREATING --> CREATED | FAILED_TO_CREATE
//	CREATED | FAILED_TO_TOP_UP | FAILED_TO_DILUTE --> CREATED | FAILED_TO_TOP_UP | FAILED_TO_DILUTE
//	any provisioned state --release--> REMOVED
package capacity
