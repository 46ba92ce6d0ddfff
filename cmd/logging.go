package cmd

import (
	"github.com/BRL-CAD/brlcad-sub112/log"
	"github.com/urfave/cli"
)

var logger = log.New("tie")

func setupLogging(ctx *cli.Context) {
	// Badger is chatty at info level.
	log.SetModuleLevel("badger", log.Warning)

	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}
