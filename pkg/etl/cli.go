package etl

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/timetabler/timetabler/pkg/bankholidays"
	"github.com/timetabler/timetabler/pkg/cache"
	"github.com/timetabler/timetabler/pkg/database"
	"github.com/timetabler/timetabler/pkg/elastic_client"
	"github.com/timetabler/timetabler/pkg/objectstore"
	"github.com/timetabler/timetabler/pkg/redis_client"
	"github.com/timetabler/timetabler/pkg/routing"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "etl",
		Usage: "Timetable file processing pipeline",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "consume stage events from the queue",
				Action: func(c *cli.Context) error {
					pipeline, err := setupPipeline(true)
					if err != nil {
						return err
					}

					if err := StartConsumers(pipeline); err != nil {
						return err
					}

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					<-signals

					log.Info().Msg("Shutting down ETL consumers")
					elastic_client.WaitUntilQueueEmpty()

					return nil
				},
			},
			{
				Name:  "process-file",
				Usage: "run the whole pipeline for a single file synchronously",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "revision-id", Required: true},
					&cli.StringFlag{Name: "bucket"},
					&cli.StringFlag{Name: "object-key"},
					&cli.StringFlag{Name: "file", Usage: "read a local file instead of object storage"},
					&cli.StringFlag{Name: "task-id"},
					&cli.BoolFlag{Name: "skip-track-inserts"},
				},
				Action: func(c *cli.Context) error {
					useLocalFile := c.String("file") != ""
					if !useLocalFile && (c.String("bucket") == "" || c.String("object-key") == "") {
						return fmt.Errorf("either --file or --bucket and --object-key are required")
					}

					pipeline, err := setupPipeline(false)
					if err != nil {
						return err
					}

					event := &StageEvent{
						DatasetRevisionID: c.Int("revision-id"),
						Bucket:            c.String("bucket"),
						ObjectKey:         c.String("object-key"),
						TaskID:            c.String("task-id"),
						SkipTrackInserts:  c.Bool("skip-track-inserts"),
					}

					if event.TaskID == "" {
						event.TaskID = fmt.Sprintf("process-file-%d-%s", event.DatasetRevisionID, event.ObjectKey)
					}

					if useLocalFile {
						data, err := os.ReadFile(c.String("file"))
						if err != nil {
							return err
						}

						event.ObjectKey = c.String("file")
						pipeline.Store = localFile{key: c.String("file"), data: data}
					}

					err = pipeline.Run(context.Background(), event)
					elastic_client.WaitUntilQueueEmpty()

					return err
				},
			},
		},
	}
}

// setupPipeline connects the shared clients. The queue connection is only
// needed by the consumer entrypoint.
func setupPipeline(withQueue bool) (*Pipeline, error) {
	if err := database.Connect(); err != nil {
		return nil, err
	}

	var revisionCache *cache.RevisionCache

	if withQueue {
		if err := redis_client.Connect(); err != nil {
			return nil, err
		}

		revisionCache = &cache.RevisionCache{}
		revisionCache.Setup()
	}

	if err := elastic_client.Connect(false); err != nil {
		log.Warn().Err(err).Msg("Elasticsearch unavailable, violations will not be indexed")
	}

	store, err := objectstore.Connect()
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		DB:       database.GlobalGorm,
		Store:    store,
		Router:   routing.NewClient(),
		Calendar: bankholidays.Load(),
		Cache:    revisionCache,
	}, nil
}

// localFile serves one in-memory file, for the process-file entrypoint.
type localFile struct {
	key  string
	data []byte
}

func (f localFile) Get(ctx context.Context, bucket string, key string) ([]byte, error) {
	if key != f.key {
		return nil, fmt.Errorf("unknown key %s", key)
	}

	return f.data, nil
}

func (f localFile) Put(ctx context.Context, bucket string, key string, data []byte) error {
	return fmt.Errorf("read only store")
}
