package pizzaagent

import (
	"fmt"
	"runtime"

	"github.com/davecgh/go-spew/spew"
)

func Dump(v ...any) {
	_, file, line, _ := runtime.Caller(1)
	args := append([]any{fmt.Sprintf("%s:%d:", file, line)}, v...)
	spew.Dump(args...)
}

// Sdump returns the spew rendering of v for embedding in log output.
func Sdump(v any) string {
	return spew.Sdump(v)
}
