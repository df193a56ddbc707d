package club

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// readGroup collapses concurrent identical balance reads into one load.
var readGroup singleflight.Group

func singleflightRead(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error, bool) {
	resultChan := readGroup.DoChan(key, func() (any, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		return res.Val, res.Err, res.Shared
	}
}
