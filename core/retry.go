package core

import "github.com/pkg/errors"

// RetryAfterRepair runs attempt once. If it fails with ErrPKCollision, repair is run
// and attempt is tried exactly one more time; a second failure is returned as is.
func RetryAfterRepair(attempt func() error, repair func() error) error {
	err := attempt()
	if !IsPKCollision(err) {
		return err
	}
	if rErr := repair(); rErr != nil {
		return errors.Wrap(rErr, "repairing sequence")
	}
	return attempt()
}
