package main

import (
	cmd "github.com/tonekit/tonekit/cmd/tonekit"
)

func main() {
	cmd.Execute()
}
