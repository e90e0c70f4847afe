package main

import (
	"os"

	"git.wyat.me/zwagit/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
