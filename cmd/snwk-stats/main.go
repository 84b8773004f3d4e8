package main

import "github.com/lokenilsson/snwk-stats/internal/cli"

func main() {
	cli.Execute()
}
