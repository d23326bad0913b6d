package main

import (
	"fmt"

	"github.com/harmonyfs/harmony/internal/repository"
)

type remoteCmd struct {
	Add    remoteAddCmd    `cmd:"" help:"Register a new remote."`
	Remove remoteRemoveCmd `cmd:"" help:"Unregister a remote."`
	List   remoteListCmd   `cmd:"" help:"List registered remotes."`
}

type remoteAddCmd struct {
	Name     string `arg:"" help:"Name to register the remote under."`
	Location string `arg:"" help:"Location URI of the remote."`
	ID       string `help:"Repository id of the remote, if known."`
	Dir      string `help:"Repository directory to start the upward search from (default: current directory)."`
}

func (c *remoteAddCmd) Run() error {
	repo, err := findRepo(c.Dir)
	if err != nil {
		return err
	}
	defer repo.Close()
	if err := repo.AddRemote(c.Name, c.Location, c.ID); err != nil {
		return err
	}
	fmt.Printf("Added remote %s -> %s\n", c.Name, c.Location)
	return nil
}

type remoteRemoveCmd struct {
	Name string `arg:"" help:"Name of the remote to remove."`
	Dir  string `help:"Repository directory to start the upward search from (default: current directory)."`
}

func (c *remoteRemoveCmd) Run() error {
	repo, err := findRepo(c.Dir)
	if err != nil {
		return err
	}
	defer repo.Close()
	if err := repo.RemoveRemote(c.Name); err != nil {
		return err
	}
	fmt.Printf("Removed remote %s\n", c.Name)
	return nil
}

type remoteListCmd struct {
	Dir string `help:"Repository directory to start the upward search from (default: current directory)."`
}

func (c *remoteListCmd) Run() error {
	repo, err := findRepo(c.Dir)
	if err != nil {
		return err
	}
	defer repo.Close()
	for _, r := range repo.GetRemotes() {
		fmt.Printf("%-20s %-40s %s\n", r.Name, r.Location, r.ID)
	}
	return nil
}

func findRepo(dir string) (*repository.Repository, error) {
	d, err := workingDir(dir)
	if err != nil {
		return nil, err
	}
	return repository.Find(d)
}
