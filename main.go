package main

import (
	"flag"
	"fmt"
	"os"
	"tlsync/internal/di"
	"tlsync/internal/structures"
)

func main() {
	flags := &structures.CliFlags{}
	flag.StringVar(&flags.ConfigPath, "config", "config/config.yaml", "path to configuration file")
	flag.BoolVar(&flags.DebugMode, "debug", false, "enable debug logging")
	flag.Parse()

	_, err := di.InitApp(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tlsync: %s\n", err)
		os.Exit(1)
	}
}
