// Package sieve is the prime sieve shared by the example functions.
package sieve

import (
	"errors"
	"fmt"
	"strconv"
)

// MaxBound caps a requested bound so one request cannot exhaust memory.
const MaxBound = 10_000_000

var ErrBoundTooLarge = fmt.Errorf("sieve: bound above %d", MaxBound)

// Primes returns every prime p with 2 <= p <= bound, in ascending order.
func Primes(bound int) []int {
	if bound < 2 {
		return nil
	}
	composite := make([]bool, bound+1)
	var primes []int
	for i := 2; i <= bound; i++ {
		if composite[i] {
			continue
		}
		primes = append(primes, i)
		for j := i << 1; j <= bound; j += i {
			composite[j] = true
		}
	}
	return primes
}

// Bound reads a sieve bound from a request body, falling back to def for empty, negative
// or non-numeric input. Bounds above MaxBound are rejected.
func Bound(data string, def int) (int, error) {
	n, err := strconv.Atoi(data)
	switch {
	case errors.Is(err, strconv.ErrRange) && data[0] != '-':
		return 0, ErrBoundTooLarge
	case err != nil || n < 0:
		return def, nil
	case n > MaxBound:
		return 0, ErrBoundTooLarge
	}
	return n, nil
}
