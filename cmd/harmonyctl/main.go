// Command harmonyctl is the command-line interface to a Harmony
// repository, grounded on the alecthomas/kong usage in
// cmd/syncthing/cli and the subcommand-per-file layout of
// cmd/syncthing/cli/{show,operations,config}.go.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

var cli struct {
	Init         initCmd         `cmd:"" help:"Initialize a new repository in the current (or given) directory."`
	Clone        cloneCmd        `cmd:"" help:"Initialize a repository and pull state from an existing one."`
	Commit       commitCmd       `cmd:"" help:"Scan the working directory and record any changes."`
	PullState    pullStateCmd    `cmd:"pull-state" help:"Pull repository state from a remote."`
	Get          getCmd          `cmd:"" help:"Pull the payload of one file from a remote."`
	Status       statusCmd       `cmd:"" help:"Show per-file status."`
	Remote       remoteCmd       `cmd:"" help:"Manage remotes."`
	ServeMetrics serveMetricsCmd `cmd:"serve-metrics" help:"Serve Prometheus metrics over HTTP."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("harmonyctl"),
		kong.Description("Decentralized file-tracking and synchronization."),
		kong.UsageOnError(),
	)
	err := ctx.Run(context.Background())
	ctx.FatalIfErrorf(err)
}

func fail(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

func workingDir(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return os.Getwd()
}
