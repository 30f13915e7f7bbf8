package main

import "github.com/fadbs/anidb-cache/cmd"

func main() {
	cmd.Execute()
}
