// mentionctl is the operator CLI for the mention monitor: match previews,
// keyword suggestions, migrations and one-off monitoring passes.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/mention-monitor/cmd/mentionctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
