package main

import (
	"context"
	"time"

	"github.com/3s-rg-codes/fnbridge/pkg/function"
	"github.com/3s-rg-codes/fnbridge/pkg/functionRuntimeInterface"
)

func main() {

	f := functionRuntimeInterface.New(functionRuntimeInterface.WithConvention(function.ResultReturningStyle))

	f.Ready(handler)
}

func handler(ctx context.Context, in *function.Request) (any, error) {
	d := 20 * time.Second
	if parsed, err := time.ParseDuration(in.Data); err == nil {
		d = parsed
	}

	select {
	case <-time.After(d):
		return "Finished Sleeping", nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
