package main

import (
	"github.com/devicehealth/diagnostics-mcp/cmd/diagnostics-mcp/cmd"
)

func main() {
	cmd.Execute()
}
