package main

import (
	"github.com/qa-tooling/ado-testreport/cmd"
)

func main() {
	cmd.Execute()
}
