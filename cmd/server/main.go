package main

import "warchief/server/internal/cli"

func main() {
	cli.Execute()
}
