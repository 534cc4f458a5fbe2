package session

import (
	"context"

	"github.com/wesm/redmine-tracker/internal/api"
)

type result[T any] struct {
	value T
	err   error
}

// await starts an asynchronous client operation and blocks until its callback
// fires or ctx is done
func await[T any](ctx context.Context, start func(api.Callback[T])) (T, error) {
	// Buffered so a callback arriving after ctx is done does not block the event loop
	ch := make(chan result[T], 1)
	start(func(value T, code api.ErrorCode, errs []string) {
		ch <- result[T]{value: value, err: api.AsError(code, errs)}
	})

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func awaitSend(ctx context.Context, start func(api.SuccessCallback)) (int, error) {
	return await(ctx, func(cb api.Callback[int]) {
		start(func(_ bool, id int, code api.ErrorCode, errs []string) {
			cb(id, code, errs)
		})
	})
}
