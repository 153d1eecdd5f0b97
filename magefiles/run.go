//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Prepares a few frames of the sample assets.
func (Run) Demo() error {
	mg.Deps(Build.Binary)
	fmt.Println("Run demo...")
	if _, err := executeCmd(binary, withArgs("-config", "pipeline.toml"), withStream()); err != nil {
		return err
	}
	return nil
}

// Prepares frames until interrupted, reloading layouts on change.
func (Run) Watch() error {
	mg.Deps(Build.Binary)
	_, err := executeCmd(binary, withArgs("-config", "pipeline.toml", "-frames", "0", "-watch"), withStream())
	return err
}
