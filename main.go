package main

import "github.com/klytics/thunderbolt/cmd"

func main() {
	cmd.Execute()
}
