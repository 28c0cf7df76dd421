package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/3s-rg-codes/fnbridge/functions/go/sieve"
	"github.com/3s-rg-codes/fnbridge/pkg/function"
	"github.com/3s-rg-codes/fnbridge/pkg/functionRuntimeInterface"
)

func main() {
	f := functionRuntimeInterface.New()
	f.Ready(function.RequestResponseFunc(handler))
}

func handler(_ context.Context, in *function.Request, w function.ResponseWriter) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	bound, err := sieve.Bound(strings.TrimSpace(in.Data), 10000)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		if _, err := fmt.Fprintln(w, err); err != nil {
			return err
		}
		return w.End()
	}
	primes := sieve.Primes(bound)

	if _, err := fmt.Fprintf(w, "Found %d primes under %d\n", len(primes), bound); err != nil {
		return err
	}
	return w.End()
}
