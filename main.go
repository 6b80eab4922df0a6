package main

import (
	"fmt"
	"os"

	"fjacquet/anapay2zaim/cmd/auth"
	"fjacquet/anapay2zaim/cmd/genres"
	"fjacquet/anapay2zaim/cmd/resolve"
	"fjacquet/anapay2zaim/cmd/root"
	synccmd "fjacquet/anapay2zaim/cmd/sync"
	"fjacquet/anapay2zaim/internal/config"
)

func init() {
	// 1. Load .env before viper reads the environment
	config.LoadEnv()

	// 2. Persistent flags
	root.Init()

	// 3. Sub-commands
	root.Cmd.AddCommand(synccmd.Cmd)
	root.Cmd.AddCommand(resolve.Cmd)
	root.Cmd.AddCommand(auth.Cmd)
	root.Cmd.AddCommand(auth.VerifyCmd)
	root.Cmd.AddCommand(genres.Cmd)
	root.Cmd.AddCommand(genres.CategoriesCmd)
	root.Cmd.AddCommand(genres.AccountsCmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
