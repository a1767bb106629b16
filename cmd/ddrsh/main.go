package main

import (
	"log"

	"github.com/robotalks/ddrlink/pkg/bridge"
	"github.com/robotalks/ddrlink/pkg/cli/sh"
	"github.com/robotalks/ddrlink/pkg/env"
)

//go-build: CGO_ENABLED=0

func init() {
	if err := env.LoadDotEnv(); err != nil {
		log.Println(err)
	}
	bridge.SetupFlags()
}

func main() {
	sh.Main()
}
