package main

import "github.com/davlia-projects/messenger-fs/cmd"

func main() {
	cmd.Execute()
}
