package main

import "github.com/joblens/extractor/internal/cli"

func main() {
	cli.Execute()
}
