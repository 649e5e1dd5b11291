package main

import "github.com/revokehq/revokectl/cmd"

func main() {
	cmd.Execute()
}
