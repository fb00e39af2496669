package helper

import "context"

// CheckDeadline returns the context error if the context is already done,
// so repositories can bail out before touching the database.
func CheckDeadline(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
