// Package pricing sizes postage batches and prices subscriptions.
//
// CalculateCapacity maps a requested amount of storage and a number of days
// to a batch depth, a per-chunk amount in PLUR and the estimated BZZ cost.
// The depth table is data: it lists the effective capacity of each depth
// and must stay sorted.
//
// PriceList is the customer facing offer. The default list is embedded and
// can be replaced by a YAML file with the same layout.
package pricing
