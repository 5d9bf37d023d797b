// Command logrelay forwards messages written to local unix sockets to a
// remote datagram collector.
package main

import (
	"context"
	"os"
)

func main() {
	if err := newRootCommand(run).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
