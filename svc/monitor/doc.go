// Package monitor holds the periodic reconciliation jobs: batch expiry
// logging, wallet balance logging and the sweeper that ends plans whose
// scheduled cancellation has passed. Jobs run on pkg/scheduler and can be
// triggered directly in tests.
package monitor
