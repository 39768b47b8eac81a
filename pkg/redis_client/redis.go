package redis_client

import (
	"context"
	"strconv"

	"github.com/adjust/rmq/v5"
	"github.com/redis/go-redis/v9"
	"github.com/timetabler/timetabler/pkg/util"
)

var Client *redis.Client
var QueueConnection rmq.Connection

const defaultConnectionAddress = "localhost:6379"
const defaultConnectionPassword = ""
const defaultDatabase = 0

func Connect() error {
	address := util.EnvOr("TIMETABLER_REDIS_ADDRESS", defaultConnectionAddress)
	password := util.EnvOr("TIMETABLER_REDIS_PASSWORD", defaultConnectionPassword)

	database := defaultDatabase
	if raw := util.EnvOr("TIMETABLER_REDIS_DATABASE", ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		database = n
	}

	Client = redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       database,
	})

	statusCmd := Client.Ping(context.Background())
	err := statusCmd.Err()
	if err != nil {
		return err
	}

	QueueConnection, err = rmq.OpenConnectionWithRedisClient("timetabler", Client, nil)

	if err != nil {
		return err
	}

	return nil
}
