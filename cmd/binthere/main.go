package main

import "github.com/oshokin/binthere/cmd/binthere/cmd"

func main() {
	cmd.Execute()
}
