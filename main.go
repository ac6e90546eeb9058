package main

import "github.com/datasync-solution/bmc-analyst/cmd"

func main() {
	cmd.Execute()
}
