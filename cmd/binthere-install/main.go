package main

import "github.com/oshokin/binthere/cmd/binthere-install/cmd"

func main() {
	cmd.Execute()
}
