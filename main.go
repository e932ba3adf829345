/*
Copyright © 2025 tieubaoca
*/
package main

import (
	"github.com/joho/godotenv"
	"github.com/tieubaoca/librarian-be/cmd"
)

func main() {
	cmd.Execute()
}

func init() {
	// .env is optional; environment variables may come from the shell.
	godotenv.Load()
}
