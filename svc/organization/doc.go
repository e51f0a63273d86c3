// Package organization defines the tenant entity and its storage contract.
// An organization owns at most one postage batch; its status is moved by
// the capacity provisioner only.
package organization
