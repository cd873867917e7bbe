package main

import "mailview/internal/cli"

func main() {
	cli.Execute()
}
