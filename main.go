// Command kraken harvests League of Legends matches and turns them into
// datasets.
package main

import (
	"os"

	"github.com/JakeFAU/kraken/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
