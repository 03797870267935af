package main

import "github.com/mchmarny/fraudboard/pkg/cli"

func main() {
	cli.Execute()
}
