// Command filestore records resources and datums and retrieves datum data
// through spec handlers.
package main

import (
	"os"

	"github.com/mesh-intelligence/filestore/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
