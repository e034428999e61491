//go:build mage

// Package main provides build targets for livetodo using Mage.
//
// Usage:
//
//	mage build     Compile the todo binary to bin/
//	mage test      Run unit tests
//	mage testAll   Run unit tests plus Postgres/Redis tests (needs TODO_TEST_PG_DSN, TODO_TEST_REDIS_ADDR)
//	mage lint      Run golangci-lint
//	mage clean     Remove build artifacts
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binLint    = "golangci-lint"
	binaryName = "todo"
	binaryDir  = "bin"
	cmdDir     = "./cmd/todo"
)

// Build compiles the todo binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		version = "dev"
	}
	ldflags := fmt.Sprintf("-X github.com/idilsaglam/livetodo/internal/cli.Version=%s", version)
	return sh.RunV(binGo, "build", "-v", "-ldflags", ldflags, "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs unit tests. Backend tests that need servers skip themselves.
func Test() error {
	return sh.RunV(binGo, "test", "./...")
}

// TestAll runs every test, failing fast when the server settings are missing.
func TestAll() error {
	for _, env := range []string{"TODO_TEST_PG_DSN", "TODO_TEST_REDIS_ADDR"} {
		if os.Getenv(env) == "" {
			return fmt.Errorf("%s must be set", env)
		}
	}
	return sh.RunV(binGo, "test", "-count=1", "./...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV(binLint, "run", "./...")
}

// Install installs todo to GOPATH/bin.
func Install() error {
	mg.Deps(Test)
	return sh.RunV(binGo, "install", cmdDir)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}
