package main

import "github.com/tarnished-labs/lorekeeper/cmd"

func main() {
	cmd.Execute()
}
