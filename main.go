package main

import "github.com/Layr-Labs/codehash/cmd"

func main() {
	cmd.Execute()
}
