package main

import "github.com/darmiel/idgate/cmd"

func main() {
	cmd.Execute()
}
