package etl

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/timetabler/timetabler/pkg/redis_client"
)

const queueName = "timetabler-etl-queue"

const numConsumers = 2

// One file is processed by exactly one worker; parallelism is across files.
const filesInFlight = 4

// StartConsumers attaches the batch consumers to the file queue. Each
// delivery is one stage event; the whole pipeline for that file runs on one
// goroutine of the worker pool.
func StartConsumers(pipeline *Pipeline) error {
	log.Info().Msg("Starting ETL consumers")

	queue, err := redis_client.QueueConnection.OpenQueue(queueName)
	if err != nil {
		return err
	}

	if err := queue.StartConsuming(numConsumers*filesInFlight*2, 1*time.Second); err != nil {
		return err
	}

	for i := 0; i < numConsumers; i++ {
		consumer := &batchConsumer{id: i, pipeline: pipeline}

		if _, err := queue.AddBatchConsumer(fmt.Sprintf("%s-%d", queueName, i), filesInFlight, 2*time.Second, consumer); err != nil {
			return err
		}
	}

	return nil
}

type batchConsumer struct {
	id       int
	pipeline *Pipeline
}

func (consumer *batchConsumer) Consume(batch rmq.Deliveries) {
	payloads := batch.Payloads()

	workers := pool.New().WithMaxGoroutines(filesInFlight)

	for _, payload := range payloads {
		payload := payload

		workers.Go(func() {
			var event StageEvent
			if err := json.Unmarshal([]byte(payload), &event); err != nil {
				log.Error().Err(err).Int("consumer", consumer.id).Msg("Failed to decode stage event")
				return
			}

			if err := consumer.pipeline.Run(context.Background(), &event); err != nil {
				// The failure is already on the task record; the queue side
				// only logs it
				log.Error().
					Err(err).
					Int("revision", event.DatasetRevisionID).
					Str("objectKey", event.ObjectKey).
					Msg("Pipeline run failed")
			}
		})
	}

	workers.Wait()

	if errors := batch.Ack(); len(errors) > 0 {
		for _, err := range errors {
			log.Error().Err(err).Msg("Failed to ack stage event")
		}
	}
}
