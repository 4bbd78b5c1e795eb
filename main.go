package main

import "github.com/mahalbangetid-beep/scb-sub003/cmd"

func main() {
	cmd.Execute()
}
