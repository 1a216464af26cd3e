package main

import "github.com/mj1618/autoshare/cmd"

func main() {
	cmd.Execute()
}
