package main

import "github.com/gbmlabs/gbmd/internal/cli"

func main() {
	cli.Execute()
}
