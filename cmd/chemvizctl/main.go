// Command chemvizctl summarizes equipment CSV files locally and talks to a
// chemviz server.
//
// Usage:
//
//	chemvizctl summarize plant.csv -o yaml
//	chemvizctl report plant.csv --format xlsx
//	chemvizctl upload plant.csv --server http://localhost:8080
//	chemvizctl history
//	chemvizctl download <id> --format pdf
//
// The server address is read from --server, CHEMVIZ_SERVER or the "server"
// key of ~/.chemvizctl.yaml, in that order.
package main

import (
	"fmt"
	"os"

	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/cmd/chemvizctl/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
