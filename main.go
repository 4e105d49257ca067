package main

import "picture-manager/cmd"

func main() {
	cmd.Execute()
}
