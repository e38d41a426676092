// Command shoerack tracks running shoe wear, default assignments and
// personal bests.
package main

import "github.com/mesh-intelligence/shoerack/internal/cli"

func main() {
	cli.Execute()
}
