package main

import "github.com/notargets/goqbx/cmd"

func main() {
	cmd.Execute()
}
