//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binLint = "golangci-lint"

// Vet runs go vet over every package, including the files behind the
// integration build tag.
func Vet() error {
	return sh.RunV(binGo, "vet", "-tags", integrationTag, "./...")
}

// Lint runs go vet, then golangci-lint with the integration build tag so
// the Postgres tests are linted too.
func Lint() error {
	mg.Deps(Vet)
	return sh.RunV(binLint, "run", "--build-tags", integrationTag, "./...")
}
