package main

import "impactanalyzer/core/cmd"

func main() {
	cmd.Execute()
}
