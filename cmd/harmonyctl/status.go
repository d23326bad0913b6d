package main

import (
	"fmt"

	"github.com/harmonyfs/harmony/internal/repository"
)

type statusCmd struct {
	Dir string `help:"Repository directory to start the upward search from (default: current directory)."`
}

func (c *statusCmd) Run() error {
	repo, err := findRepo(c.Dir)
	if err != nil {
		return err
	}
	defer repo.Close()

	stats, err := repo.GetFileStats()
	if err != nil {
		return err
	}

	for _, s := range stats {
		fmt.Printf("%-40s %s\n", s.Path, statusGlyph(s))
	}
	return nil
}

func statusGlyph(s repository.FileStatus) string {
	switch {
	case !s.ExistsInRepository:
		return "untracked"
	case !s.ExistsInWorkdir:
		return "missing"
	case s.MaybeModified:
		return "modified"
	case !s.IsMostRecent:
		return "stale"
	default:
		return "clean"
	}
}
