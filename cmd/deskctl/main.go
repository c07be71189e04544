package main

import (
	"github.com/deskhand/deskhand/internal/cli"
)

func main() {
	cli.Execute()
}
