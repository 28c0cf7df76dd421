// Build with: go build -buildmode=plugin -o fn/fn.so ./functions/go/plugin-sieve
package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/3s-rg-codes/fnbridge/functions/go/sieve"
	"github.com/3s-rg-codes/fnbridge/pkg/encoder"
	"github.com/3s-rg-codes/fnbridge/pkg/function"
)

// Handler is the symbol the bridge looks up in fn.so.
var Handler = function.RequestResponseFunc(func(_ context.Context, in *function.Request, w function.ResponseWriter) error {
	bound, err := sieve.Bound(strings.TrimSpace(in.Data), 1000)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		if _, err := fmt.Fprintln(w, err); err != nil {
			return err
		}
		return w.End()
	}
	primes := sieve.Primes(bound)
	if _, err := fmt.Fprintln(w, encoder.Stringify(primes)); err != nil {
		return err
	}
	return w.End()
})

func main() {}
