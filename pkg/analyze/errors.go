package analyze

import "github.com/pkg/errors"

var (
	// ErrInvalidArgument is returned for bad caller input
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotScanned is returned by queries issued before a successful scan
	ErrNotScanned = errors.New("no directory has been scanned")
)
