package main

import (
	"context"
	"fmt"

	"github.com/harmonyfs/harmony/internal/repository"
)

type cloneCmd struct {
	Location string `arg:"" help:"Location URI of the repository to clone from."`
	Dir      string `arg:"" optional:"" help:"Directory to initialize (default: current directory)."`
	Name     string `help:"Name for this repository location (default: host-dirname)."`
}

func (c *cloneCmd) Run(ctx context.Context) error {
	dir, err := workingDir(c.Dir)
	if err != nil {
		return err
	}

	repo, conflicts, err := repository.Clone(ctx, dir, c.Location, c.Name)
	if err != nil {
		return err
	}
	defer repo.Close()
	if len(conflicts) > 0 {
		return reportConflicts(conflicts)
	}

	fmt.Printf("Cloned repository %s (%s) from %s into %s\n", repo.Name, repo.ShortID(), c.Location, repo.RootDir)
	return nil
}
