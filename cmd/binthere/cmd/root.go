package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/oshokin/binthere/internal/logger"
	"github.com/oshokin/binthere/internal/service/launcher"
)

// Execute runs the installed binthere executable and exits the way it did.
// Arguments are not parsed here at all. A cobra root would reserve its hidden completion
// commands even with flag parsing disabled, and every argument belongs to the delegate.
func Execute() {
	// No signal handlers here: Ctrl-C reaches the child and the launcher alike.
	termination, err := launcher.Run(context.Background(), &launcher.Options{Args: os.Args[1:]})
	if err != nil {
		report(err)
		os.Exit(1)
	}

	launcher.Mirror(termination)
}

// report prints why the delegate could not be started.
func report(err error) {
	ctx := context.Background()

	if errors.Is(err, launcher.ErrLauncherBinaryMissing) {
		logger.Error(ctx, err.Error())
		return
	}

	logger.ErrorKV(ctx, "Unable to run binthere", "error", err)
}
