package main

import "github.com/MeKo-Tech/parallax/cmd/parallax/cmd"

func main() {
	cmd.Execute()
}
