package main

import "github.com/medistore/medistore/cmd/medistore/cmd"

func main() {
	cmd.Execute()
}
