package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vk/anda/internal/app"
	"github.com/vk/anda/internal/cli"
	anderr "github.com/vk/anda/internal/errors"
)

// main is the entrypoint for the anda application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()
	os.Exit(exitCode(err, os.Stderr))
}

// exitCode reports err on errW and maps it to a process exit status.
func exitCode(err error, errW io.Writer) int {
	if err == nil {
		return anderr.ExitOK
	}
	if exitErr, ok := err.(*cli.ExitError); ok {
		fmt.Fprintln(errW, exitErr.Message)
		return exitErr.Code
	}
	msg, code := anderr.NewCLIErrorAdapter(false, slog.Default()).Report(err)
	fmt.Fprintln(errW, msg)
	return code
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW, logW io.Writer, args []string) (err error) {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// A panic past this point is a bug; report it instead of crashing.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application panicked: %v", r)
		}
	}()

	return app.NewApp(outW, logW, appConfig).Run(ctx)
}
