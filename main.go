package main

import (
	"os"

	"github.com/vpsguard/vpsguard/internal/adapters/inbound/cli"
)

func main() {
	os.Exit(cli.Execute())
}
