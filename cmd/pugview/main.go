// Command pugview renders Pug views and warms their compiled cache.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	app := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := app.Run(context.Background(), os.Exit, os.Args[1:]...); err != nil {
		fmt.Fprintf(os.Stderr, "pugview: %v\n", err)
		os.Exit(1)
	}
}
