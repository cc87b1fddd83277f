package catalog

import "errors"

var ErrNotFound = errors.New("offering not found")
