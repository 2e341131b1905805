// Command import-content seeds a content backend from a TOML file with one table per
// section:
//
//	[hero]
//	title = "Welcome"
//	subtitle = "We build things people like"
package main

import (
	"context"
	"flag"
	"os"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/debemdeboas/site-editor/internal/config"
	"github.com/debemdeboas/site-editor/internal/content"
	"github.com/debemdeboas/site-editor/internal/db"
	"github.com/debemdeboas/site-editor/internal/logger"
	"github.com/debemdeboas/site-editor/internal/model"
	"github.com/debemdeboas/site-editor/internal/repository"
)

const maxParallelSections = 4

func main() {
	file := flag.String("file", "", "TOML content file to import")
	configPath := flag.String("config", "config.yaml", "Configuration file selecting the backend")
	author := flag.String("author", "", "User ID recorded on imported rows (sqlite only)")
	dryRun := flag.Bool("dry-run", false, "Validate the file without writing")
	flag.Parse()

	l := logger.New("info")
	config.SetLogger(l)
	db.SetLogger(l)
	repository.SetLogger(l)

	if *file == "" {
		l.Fatal().Msg("--file is required")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		l.Fatal().Err(err).Str("file", *file).Msg("Error reading content file")
	}
	sections, err := repository.DecodeContentTOML(data)
	if err != nil {
		l.Fatal().Err(err).Str("file", *file).Msg("Invalid content file")
	}

	if err := config.LoadConfig(*configPath); err != nil {
		l.Fatal().Err(err).Msg("Error loading configuration")
	}
	cfg := config.AppConfig

	schema, err := content.NewSchema(cfg.Editor.Sections)
	if err != nil {
		l.Fatal().Err(err).Msg("Invalid editor.sections")
	}
	for section, fields := range sections {
		for field := range fields {
			if !schema.Allows(section, field) {
				l.Fatal().Str("field", model.FieldRef{Section: section, Field: field}.String()).Msg("Field is not editable")
			}
		}
	}

	if *dryRun {
		l.Info().Int("sections", len(sections)).Msg("Content file is valid")
		return
	}

	ctx := context.Background()

	var database db.Db
	if cfg.Backend.Type == repository.TypeSQLite {
		sqlite := db.NewSQLite(cfg.Backend.SQLitePath)
		if err := sqlite.InitDb(); err != nil {
			l.Fatal().Err(err).Msg("Error initializing database")
		}
		defer sqlite.Close()
		database = sqlite
	}

	repo, err := repository.NewFromConfig(ctx, cfg.Backend, database)
	if err != nil {
		l.Fatal().Err(err).Msg("Error creating backend")
	}
	if dbRepo, ok := repo.(*repository.DbRepository); ok && *author != "" {
		dbRepo.SetAuthor(model.UserID(*author))
	}

	if err := importSections(ctx, l, repo, sections); err != nil {
		l.Fatal().Err(err).Msg("Import failed")
	}
	l.Info().Int("sections", len(sections)).Msg("Import complete")
}

// importSections writes sections in parallel; fields of one section are written in
// order because file and object backends rewrite the whole section per field.
func importSections(ctx context.Context, l zerolog.Logger, backend content.Backend, sections map[model.SectionKey]model.SectionContent) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelSections)

	for section, fields := range sections {
		g.Go(func() error {
			names := make([]string, 0, len(fields))
			for name := range fields {
				names = append(names, string(name))
			}
			sort.Strings(names)

			for _, name := range names {
				field := model.FieldName(name)
				if err := backend.WriteField(ctx, section, field, content.NormalizeValue(fields[field])); err != nil {
					return err
				}
			}
			l.Info().Str("section", string(section)).Int("fields", len(names)).Msg("Section imported")
			return nil
		})
	}

	return g.Wait()
}
