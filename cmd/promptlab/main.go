package main

import "github.com/emiliopalmerini/promptlab/internal/cli"

func main() {
	cli.Execute()
}
