package main

import (
	"fmt"
	"os"

	"github.com/valksor/go-phaseflow/cmd/phaseflow/commands"
	"github.com/valksor/go-phaseflow/internal/display"
	"github.com/valksor/go-phaseflow/internal/log"
)

func main() {
	err := commands.Execute()
	log.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, display.ErrorMsg("%v", err))
		os.Exit(1)
	}
}
