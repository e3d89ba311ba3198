package main

import "racecard-watcher/internal/cli"

func main() {
	cli.Execute()
}
