package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/okian/ratebook/internal/adapters/persistence"
	"github.com/okian/ratebook/internal/adapters/repository"
	service "github.com/okian/ratebook/internal/app"
	"github.com/okian/ratebook/pkg/logger"
)

func (a *app) newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the configured backend's ratings with a JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.transfer(cmd.Context(), args[0], true)
		},
	}
}

func (a *app) newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export FILE",
		Short: "Write the configured backend's ratings to a JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.transfer(cmd.Context(), args[0], false)
		},
	}
}

// transfer copies every rating between the JSON document at path and the
// configured backend, through an in-memory store so the source is fully
// validated before anything is written.
func (a *app) transfer(ctx context.Context, path string, toBackend bool) error {
	c, err := a.codec()
	if err != nil {
		return err
	}
	configured, err := a.backend(ctx, c)
	if err != nil {
		a.log.Error(ctx, "failed to open backend", logger.Error(err))
		return err
	}
	defer configured.Close()

	file := persistence.NewJSONFile(path, c)
	src, dst := persistence.Backend(configured), persistence.Backend(file)
	if toBackend {
		src, dst = file, configured
	}

	store := repository.NewMemoryStore()
	if err := service.NewSyncer(store, src, a.log).Load(ctx); err != nil {
		return err
	}
	if err := service.NewSyncer(store, dst, a.log).Save(ctx); err != nil {
		return err
	}
	a.log.Info(ctx, "transfer complete",
		logger.String("from", src.Location()),
		logger.String("to", dst.Location()),
		logger.Int("records", store.Count(ctx)),
	)
	return nil
}
