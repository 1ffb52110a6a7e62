package main

import (
	"context"
	"errors"
	"fmt"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/pthm/hxembed"
)

var errBlocksFailed = errors.New("some blocks failed to load")

func runCompose(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)

	target := cmd.Args().Get(0)
	if target == "" {
		return errors.New("missing TARGET")
	}

	opts, err := e.cfg.Options()
	if err != nil {
		return err
	}
	opts = append(opts, hxembed.WithLogger(e.log))

	embed := hxembed.New(hxembed.Attributes{
		hxembed.AttrTarget: target,
		hxembed.AttrMode:   cmd.String("mode"),
	}, opts...)
	defer embed.Detach()

	if err := embed.Attach(ctx); err != nil {
		return fmt.Errorf("unable to compose %s: %w", target, err)
	}

	failed := multierr.Errors(embed.AssetErr())
	for _, err := range failed {
		e.log.Warn("Block failed", zap.Error(err))
	}
	e.log.Info("Composed",
		zap.String("target", target),
		zap.Stringer("mode", embed.Request().Mode),
		zap.Int("regions", len(embed.Regions())),
		zap.Int("failed", len(failed)))

	if err := writeOutput(cmd.Args().Get(1), []byte(embed.HTML()+"\n")); err != nil {
		return err
	}
	if cmd.Bool("strict") && len(failed) > 0 {
		return fmt.Errorf("%w: %d of %d", errBlocksFailed, len(failed), len(embed.Regions()))
	}
	return nil
}
