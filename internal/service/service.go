package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/sakif/newsdesk/internal/apperror"
)

// latency simulates a remote backend by sleeping a random duration in
// [min, max]. The zero value sleeps never.
type latency struct {
	min, max time.Duration
}

func (l latency) wait(ctx context.Context) error {
	if l.max <= 0 {
		return ctx.Err()
	}
	d := l.min
	if l.max > l.min {
		d += rand.N(l.max - l.min + 1)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return apperror.Network(ctx.Err())
	case <-timer.C:
		return nil
	}
}

// storageErr wraps a repository failure for the UI. Errors that already
// carry a business code pass through.
func storageErr(message string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Storage(message, err)
}
