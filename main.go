package main

import "github.com/safebite/handheld/cmd"

func main() {
	cmd.Execute()
}
