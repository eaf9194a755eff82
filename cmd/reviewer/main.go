package main

import "aireviewer/internal/cli"

func main() {
	cli.Run()
}
