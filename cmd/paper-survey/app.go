// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/pdiddy/paper-survey/internal/aggregate"
	"github.com/pdiddy/paper-survey/internal/intent"
	"github.com/pdiddy/paper-survey/internal/source"
)

// newAggregator wires the built-in source adapters into an aggregator.
func newAggregator() *aggregate.Aggregator {
	return aggregate.New(source.New(cfg.Sources), cfg, logger)
}

func newParser() intent.AutoParser {
	return intent.AutoParser{Options: intent.OptionsFrom(cfg.Search)}
}
