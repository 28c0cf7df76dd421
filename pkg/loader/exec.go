package loader

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/3s-rg-codes/fnbridge/pkg/function"
)

// ExecutionError carries the output of an executable module that exited non-zero.
type ExecutionError struct {
	Name   string
	Output string
	Cause  error
}

func (e *ExecutionError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("%s: %v", e.Name, e.Cause)
	}
	return fmt.Sprintf("%s: %v: %s", e.Name, e.Cause, out)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// newExecutable runs the module binary once per request with the body on stdin.
// Only the child process runs inside the working context.
func newExecutable(wd *function.WorkDir, name string) function.ResultFunc {
	path := wd.Resolve(name)
	return func(ctx context.Context, req *function.Request) (any, error) {
		cmd := exec.CommandContext(ctx, path)
		cmd.Dir = wd.Path()
		cmd.Stdin = strings.NewReader(req.Data)
		cmd.Env = append(os.Environ(),
			"FN_REQUEST_ID="+req.Id,
			"FN_REQUEST_METHOD="+req.Method,
			"FN_REQUEST_PATH="+req.Path,
		)
		output, err := cmd.CombinedOutput()
		if err != nil {
			return nil, &ExecutionError{Name: name, Output: string(output), Cause: err}
		}
		return output, nil
	}
}
