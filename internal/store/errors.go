package store

import "errors"

var ErrNoRun = errors.New("store: no stored run")
