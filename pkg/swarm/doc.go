// Package swarm is a small client for the Bee node HTTP API covering the
// postage batch and wallet endpoints the billing flows need.
package swarm
