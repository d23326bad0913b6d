package main

import (
	"context"
	"fmt"

	"github.com/harmonyfs/harmony/internal/merge"
)

type pullStateCmd struct {
	Remote string `arg:"" help:"Remote name, id, or raw location URI to pull state from."`
	Dir    string `help:"Repository directory to start the upward search from (default: current directory)."`
}

func (c *pullStateCmd) Run(ctx context.Context) error {
	repo, err := findRepo(c.Dir)
	if err != nil {
		return err
	}
	defer repo.Close()

	conflicts, err := repo.PullState(ctx, c.Remote)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return reportConflicts(conflicts)
	}

	if err := repo.Save(); err != nil {
		return err
	}
	fmt.Println("State pulled and merged.")
	return nil
}

func reportConflicts(conflicts []merge.Conflict) error {
	fmt.Printf("%d file(s) are in conflict; local state left unchanged:\n", len(conflicts))
	for _, c := range conflicts {
		fmt.Printf("  %s: local=%s remote=%s\n", c.Path, c.Local.Digest, c.Remote.Digest)
	}
	return fail("pull aborted due to conflicts")
}

type getCmd struct {
	Path   string `arg:"" help:"Path (relative to the working directory) to fetch."`
	Remote string `arg:"" help:"Remote name, id, or raw location URI to fetch from."`
	Dir    string `help:"Repository directory to start the upward search from (default: current directory)."`
}

func (c *getCmd) Run(ctx context.Context) error {
	repo, err := findRepo(c.Dir)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.PullFile(ctx, c.Path, c.Remote); err != nil {
		return err
	}
	fmt.Printf("Fetched %s from %s\n", c.Path, c.Remote)
	return nil
}
