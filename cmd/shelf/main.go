// Command shelf is the demo CLI for the shelf mapping engine.
package main

import "github.com/mesh-intelligence/shelf/internal/cli"

func main() {
	cli.Execute()
}
