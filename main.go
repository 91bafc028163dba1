package main

import "github.com/fugjoo/pigeon-scanner/cmd"

func main() {
	cmd.Execute()
}
