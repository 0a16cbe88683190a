package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/lovabuddy/internal/platform/shutdown"
	"github.com/yungbote/lovabuddy/internal/relay/app"
)

func main() {
	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Printf("failed to initialize relay: %v\n", err)
		os.Exit(1)
	}

	if err := a.Run(ctx); err != nil {
		fmt.Printf("relay exited: %v\n", err)
		os.Exit(1)
	}
}
