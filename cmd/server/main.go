package main

import "github.com/campusflow/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
