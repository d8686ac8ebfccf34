package main

import "gymdesk/cmd/gymctl/cmd"

func main() {
	cmd.Execute()
}
