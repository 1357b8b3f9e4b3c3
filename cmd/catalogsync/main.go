// Package main is the entry point for the catalogsync server.
package main

import (
	"os"

	"github.com/candleworks/catalogsync/cmd/catalogsync/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
