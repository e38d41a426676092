//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const integrationTag = "integration"

// Test groups test targets (all, unit, integration).
type Test mg.Namespace

// All runs unit tests, then integration tests.
func (Test) All() error {
	mg.SerialDeps(Test.Unit, Test.Integration)
	return nil
}

// Unit runs the tests that need no external services.
func (Test) Unit() error {
	return sh.RunV(binGo, "test", "-v", "-race", "./...")
}

// Integration runs the tests behind the integration build tag. The
// Postgres tests start their own container through testcontainers, so a
// working docker or podman runtime is required.
func (Test) Integration() error {
	if rt := containerRuntime(); rt == "" {
		return fmt.Errorf("integration tests need a container runtime (tried podman, docker)")
	}
	mg.Deps(Build)
	return sh.RunV(binGo, "test", "-v", "-tags", integrationTag, "./internal/postgres/...")
}
