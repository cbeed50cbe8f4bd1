package main

import (
	"os"

	"github.com/phuslu/log"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		log.Error().Err(err).Msg("engine")
		os.Exit(1)
	}
}
