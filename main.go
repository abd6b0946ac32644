package main

import "github.com/cairnfield/tempo/cmd"

func main() {
	cmd.Execute()
}
