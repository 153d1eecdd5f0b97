//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

const binary = "bin/anima-descset"

type Build mg.Namespace

// Builds the descriptor set preparation tool into bin/.
func (Build) Binary() error {
	if _, err := executeCmd("go", withArgs("build", "-o", binary, "./cmd/anima-descset"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs go mod tidy and go vet over every package.
func (Build) Tidy() error {
	return goTidy()
}

type Test mg.Namespace

// Runs the unit tests of every package with the race detector.
func (Test) Unit() error {
	_, err := executeCmd("go", withArgs("test", "-race", "-count=1", "./..."), withStream())
	return err
}

// Runs the pipeline benchmarks.
func (Test) Bench() error {
	_, err := executeCmd("go", withArgs("test", "-run=^$", "-bench=.", "./engine/renderer/pipeline/"), withStream())
	return err
}
