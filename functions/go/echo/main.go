package main

import (
	"io"
	"net/http"

	"github.com/3s-rg-codes/fnbridge/pkg/functionRuntimeInterface"
)

func main() {
	fn := functionRuntimeInterface.New()
	fn.Ready(http.HandlerFunc(echo))
}

// echo writes the request body back with the caller's content type.
func echo(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	if _, err := io.Copy(w, r.Body); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
