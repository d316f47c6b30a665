package main

import "github.com/rizkipratama/tierdocs/cmd"

func main() {
	cmd.Execute()
}
