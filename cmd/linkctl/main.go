package main

import "github.com/pilab-dev/twitched-link/cmd/linkctl/cmd"

func main() {
	cmd.Execute()
}
