package main

import "github.com/fvkit/fvtime/cmd"

func main() {
	cmd.Execute()
}
