package main

import (
	"fmt"

	"github.com/harmonyfs/harmony/internal/repository"
)

type initCmd struct {
	Dir  string `arg:"" optional:"" help:"Directory to initialize (default: current directory)."`
	Name string `help:"Name for this repository location (default: host-dirname)."`
}

func (c *initCmd) Run() error {
	dir, err := workingDir(c.Dir)
	if err != nil {
		return err
	}

	repo, err := repository.Init(dir, c.Name)
	if err != nil {
		return err
	}
	defer repo.Close()

	fmt.Printf("Initialized repository %s (%s) at %s\n", repo.Name, repo.ShortID(), repo.RootDir)
	return nil
}
