package main

import "github.com/shopsphere/shopctl/cmd"

func main() {
	cmd.Execute()
}
