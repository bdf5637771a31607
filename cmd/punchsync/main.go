package main

import (
	"context"
	"punchsync/cmd/punchsync/commands"
	"punchsync/lib/osutil"
)

func main() {
	err := commands.ExecuteContext(context.Background())
	if err != nil {
		osutil.Fatal("punchsync failed", err)
	}
}
