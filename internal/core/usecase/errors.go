package usecase

import "errors"

var ErrSchemaMissing = errors.New("transactions relation is missing")
