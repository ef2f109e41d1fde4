package main

import (
	"fmt"

	"github.com/urfave/cli"

	"render-culling/config"
	"render-culling/log"
	"render-culling/spatial"
)

var logger = log.New("cullbench")

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}

// loadSettings reads the --config file, or returns the defaults.
func loadSettings(ctx *cli.Context) (config.Settings, error) {
	path := ctx.GlobalString("config")
	if path == "" {
		return config.Default(), nil
	}
	s, err := config.Load(path)
	if err != nil {
		return config.Settings{}, err
	}
	logger.Infof("loaded settings from %s", path)
	return s, nil
}

// treeStats is implemented by every index type.
type treeStats interface {
	Stats() spatial.Stats
}

func indexStats[T spatial.Item](index spatial.Index[T]) (spatial.Stats, error) {
	s, ok := index.(treeStats)
	if !ok {
		return spatial.Stats{}, fmt.Errorf("index %T reports no stats", index)
	}
	return s.Stats(), nil
}
