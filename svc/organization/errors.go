package organization

import "errors"

var ErrNotFound = errors.New("organization not found")
