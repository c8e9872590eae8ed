package main

import (
	"os"

	"github.com/idilsaglam/issuestash/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
