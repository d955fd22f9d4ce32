package main

import (
	"github.com/Laisky/xero-mcp/cmd"
)

func main() {
	cmd.Execute()
}
