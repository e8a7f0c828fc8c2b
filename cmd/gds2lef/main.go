package main

import "github.com/OpenTraceLab/gds2lef/cmd/gds2lef/cmd"

func main() {
	cmd.Execute()
}
