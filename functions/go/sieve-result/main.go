package main

import (
	"context"
	"strings"

	"github.com/3s-rg-codes/fnbridge/functions/go/sieve"
	"github.com/3s-rg-codes/fnbridge/pkg/encoder"
	"github.com/3s-rg-codes/fnbridge/pkg/function"
	"github.com/3s-rg-codes/fnbridge/pkg/functionRuntimeInterface"
)

func main() {
	f := functionRuntimeInterface.New()
	f.Ready(function.ResultFunc(handler))
}

// handler returns the primes up to the requested bound; the bridge wraps them into the
// response envelope.
func handler(_ context.Context, in *function.Request) (any, error) {
	bound, err := sieve.Bound(strings.TrimSpace(in.Data), 1000)
	if err != nil {
		return encoder.NewEnvelope("4.00", err.Error()), nil
	}
	return sieve.Primes(bound), nil
}
