package main

import "pogorarity-backend/cmd/pogorarity-cli/commands"

func main() {
	commands.Execute()
}
