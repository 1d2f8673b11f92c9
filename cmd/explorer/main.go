package main

import "github.com/civicdata/explorer/cmd/explorer/cmd"

func main() {
	cmd.Execute()
}
