package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	root := newRootCmd(&cli{})
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
