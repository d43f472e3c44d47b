package main

import "github.com/RyanBlaney/ritmo-radar/cmd"

func main() {
	cmd.Execute()
}
