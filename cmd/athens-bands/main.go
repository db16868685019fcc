package main

import "github.com/pfrederiksen/athens-bands/internal/cli"

func main() {
	cli.Execute()
}
