// Package validator provides small composable validation rules.
//
// Each rule pairs a check with the error reported when it fails; Apply runs
// all of them and returns ValidationErrors listing every failed field:
//
//	err := validator.Apply(
//		validator.MinNum("storage", req.Storage, 1),
//		validator.ValidUUID("organizationId", rawOrgID),
//	)
package validator
