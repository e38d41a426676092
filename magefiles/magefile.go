//go:build mage

// Package main provides build targets for the shoerack project using Mage.
//
// Usage:
//
//	mage build             Compile shoerack binary to bin/
//	mage clean             Remove build artifacts
//	mage install           Install shoerack to GOPATH/bin
//	mage vet               Run go vet (integration tag included)
//	mage lint              Run go vet and golangci-lint
//	mage test:all          Run unit and integration tests
//	mage test:unit         Run only unit tests
//	mage test:integration  Run integration tests (needs a container runtime)
//	mage db:up             Start a local Postgres container for the postgres backend
//	mage db:down           Stop the local Postgres container
package main
