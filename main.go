package main

import "github.com/frahmantamala/tutoring-platform/cmd"

func main() {
	cmd.Execute()
}
