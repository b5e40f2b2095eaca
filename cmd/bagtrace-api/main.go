package main

import (
	"context"
	"errors"
	"log/slog"
)

func main() {
	app := mustBootstrapBagTraceAPI()
	defer app.Close()

	if err := app.Run(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("bagtrace api stopped", "error", err.Error())
		panic(err)
	}
}
