package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/bnema/proxy-manager/internal/adapters/in/cli"
)

var (
	version string
	commit  string
	date    string
)

func main() {
	os.Exit(cli.Execute(version, commit, date))
}
