package main

import (
	"context"
	"fmt"
	"os"

	"civicscraper/cmd/civicscraper/commands"
	"civicscraper/lib/telemetry"
)

func main() {
	ctx := context.Background()
	tel, err := telemetry.Setup(ctx, "civicscraper")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer tel.Shutdown(ctx)

	commands.ExecuteContext(ctx)
}
