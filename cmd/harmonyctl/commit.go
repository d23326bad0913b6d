package main

import "fmt"

type commitCmd struct {
	Dir string `help:"Repository directory to start the upward search from (default: current directory)."`
}

func (c *commitCmd) Run() error {
	repo, err := findRepo(c.Dir)
	if err != nil {
		return err
	}
	defer repo.Close()

	changed, err := repo.Commit()
	if err != nil {
		return err
	}
	if changed {
		fmt.Println("Changes committed.")
	} else {
		fmt.Println("Nothing to commit.")
	}
	return nil
}
