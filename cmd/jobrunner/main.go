// Command jobrunner runs configuration-driven job pipelines.
//
//	jobrunner validate -c pipeline.yaml
//	jobrunner graph -c pipeline.yaml | dot -Tsvg > pipeline.svg
//	jobrunner run -c pipeline.yaml -n 100 --perf-csv perf.csv
//	jobrunner serve -c pipeline.yaml --port 8080
package main

import (
	"context"
	"fmt"
	"io"
	"os"
)

func main() {
	if err := run(context.Background(), os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run executes the command line in args, writing command output to out and
// diagnostics to errOut.
func run(ctx context.Context, out, errOut io.Writer, args []string) error {
	root := newRootCommand()
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
