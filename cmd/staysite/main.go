package main

import "github.com/example/staysite/cmd"

func main() {
	cmd.Execute()
}
