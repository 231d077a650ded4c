package main

import (
	"fmt"
	"os"

	"fjacquet/budget-sync/cmd/history"
	"fjacquet/budget-sync/cmd/normalize"
	"fjacquet/budget-sync/cmd/root"
	"fjacquet/budget-sync/cmd/run"
	"fjacquet/budget-sync/cmd/serve"
	"fjacquet/budget-sync/internal/config"
)

func init() {
	// Load .env before viper reads the environment
	_, _ = config.LoadEnv()

	root.Init()

	root.Cmd.AddCommand(run.Cmd)
	root.Cmd.AddCommand(normalize.Cmd)
	root.Cmd.AddCommand(serve.Cmd)
	root.Cmd.AddCommand(history.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
