package main

import "github.com/gaurav-prasanna/dumppipe/cmd"

func main() {
	cmd.Execute()
}
