package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/lovabuddy/internal/buddy/cli"
	"github.com/yungbote/lovabuddy/internal/platform/shutdown"
)

func main() {
	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "buddy: %v\n", err)
		os.Exit(1)
	}
}
