package main

import "github.com/KaramelBytes/bpsloom-cli/cmd"

func main() {
	cmd.Execute()
}
