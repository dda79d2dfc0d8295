package main

import "github.com/vietddude/flowpanel/internal/cli"

func main() {
	cli.Execute()
}
