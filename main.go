package main

import "SystemMonitor/pkg/commands"

func main() {
	commands.Execute()
}
