package main

import "github.com/PRL-PRG/what-constitutes-software-query/cmd"

func main() {
	cmd.Execute()
}
