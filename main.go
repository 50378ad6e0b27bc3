package main

import "nessdb/cmd"

func main() {
	cmd.Execute()
}
