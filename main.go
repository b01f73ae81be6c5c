// Command functions is the local development entrypoint: it declares the
// example "echo" handler and runs the bridge, branching on phase the way
// SPEC_FULL §4 describes. Real deployments import github.com/browserbase/sdk-functions-go/sdk
// directly from their own handler package instead of this demo binary.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/browserbase/sdk-functions-go/sdk"
)

func main() {
	phaseOverride := flag.String("phase", "", "override BB_FUNCTIONS_PHASE (runtime|introspect)")
	flag.Parse()

	if *phaseOverride != "" {
		os.Setenv("BB_FUNCTIONS_PHASE", *phaseOverride)
	}

	app := sdk.New()

	app.RegisterFunction("echo", func(_ context.Context, params map[string]interface{}) (interface{}, error) {
		return params, nil
	}, sdk.WithSessionConfig(map[string]interface{}{"browser": "chromium"}))

	app.Run()
}
