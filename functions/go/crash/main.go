package main

import (
	"context"
	"time"

	"github.com/3s-rg-codes/fnbridge/pkg/function"
	"github.com/3s-rg-codes/fnbridge/pkg/functionRuntimeInterface"
)

func main() {

	f := functionRuntimeInterface.New()

	f.Ready(function.ResultFunc(handler))
}

// this function panics on purpose; the bridge answers 500 and keeps serving
func handler(ctx context.Context, in *function.Request) (any, error) {
	select {
	case <-time.After(2 * time.Second):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	panic("crash")
}
