package main

import "github.com/bastion-labs/authgate/cmd/authgate/cmd"

func main() {
	cmd.Execute()
}
