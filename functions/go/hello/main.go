package main

import (
	"github.com/3s-rg-codes/fnbridge/pkg/functionRuntimeInterface"
)

func main() {
	fn := functionRuntimeInterface.New()

	fn.Ready(func(data string, headers map[string]string) (string, error) {
		if name := headers["X-Name"]; name != "" {
			return "Hello, " + name + "!", nil
		}
		return "HELLO WORLD!", nil
	})
}
