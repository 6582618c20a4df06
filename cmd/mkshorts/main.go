package main

import "github.com/forPelevin/mkshorts/internal/cli"

func main() {
	cli.Main()
}
