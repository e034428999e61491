package main

import (
	"os"

	"github.com/idilsaglam/livetodo/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
