package main

import "github.com/scbrown/semmatch/internal/cli"

func main() {
	cli.Main()
}
