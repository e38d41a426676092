//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Local Postgres container constants. The URL matches the postgres_url
// a developer puts in config.yaml when running with backend: postgres.
const (
	dbContainerName = "shoerack-postgres"
	dbImage         = "postgres:16-alpine"
	dbPort          = "5432"
	dbUser          = "shoerack"
	dbPassword      = "shoerack"
	dbName          = "shoerack"
)

// DB groups targets that manage the local Postgres container.
type DB mg.Namespace

// containerRuntime returns "podman" or "docker" if a working runtime
// is available, or "" if neither is usable. It checks both that the
// binary exists on PATH and that it can connect to its daemon/machine.
func containerRuntime() string {
	for _, name := range []string{"podman", "docker"} {
		if _, err := exec.LookPath(name); err != nil {
			continue
		}
		if exec.Command(name, "info").Run() != nil {
			fmt.Fprintf(os.Stderr, "WARNING: %s found on PATH but not usable (is the daemon/machine running?)\n", name)
			continue
		}
		return name
	}
	return ""
}

func dbURL() string {
	return fmt.Sprintf("postgres://%s:%s@127.0.0.1:%s/%s?sslmode=disable", dbUser, dbPassword, dbPort, dbName)
}

// Up starts a detached Postgres container and prints its connection URL.
func (DB) Up() error {
	rt := containerRuntime()
	if rt == "" {
		return fmt.Errorf("no container runtime found (tried podman, docker)")
	}
	fmt.Fprintln(os.Stderr, "Starting Postgres container...")
	cmd := exec.Command(rt, "run", "-d", "--rm",
		"--name", dbContainerName,
		"-p", dbPort+":5432",
		"-e", "POSTGRES_USER="+dbUser,
		"-e", "POSTGRES_PASSWORD="+dbPassword,
		"-e", "POSTGRES_DB="+dbName,
		dbImage)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return err
	}
	fmt.Println(dbURL())
	return nil
}

// Down stops the Postgres container. Errors are ignored because the
// container may not be running.
func (DB) Down() {
	rt := containerRuntime()
	if rt == "" {
		return
	}
	fmt.Fprintln(os.Stderr, "Stopping Postgres container...")
	_ = exec.Command(rt, "stop", dbContainerName).Run()
}
