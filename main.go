package main

import (
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/vittapcode/homeboard/cmd"
)

func main() {
	app := &cli.App{
		Name:   "homeboard",
		Usage:  "gateway between the smart-home message bus and the dashboard UI",
		Action: cmd.DashboardCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "mqtt-url",
				EnvVars:  []string{"MQTT_URL"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "mqtt-user",
				EnvVars: []string{"MQTT_USER"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-pass",
				EnvVars: []string{"MQTT_PASS"},
				Value:   "",
			},
			&cli.DurationFlag{
				Name:    "mqtt-connect-timeout",
				EnvVars: []string{"MQTT_CONNECT_TIMEOUT"},
				Value:   5 * time.Second,
			},
			&cli.DurationFlag{
				Name:    "mqtt-retry-interval",
				EnvVars: []string{"MQTT_RETRY_INTERVAL"},
				Value:   5 * time.Second,
			},
			&cli.StringFlag{
				Name:     "api-url",
				EnvVars:  []string{"API_URL"},
				Required: true,
			},
			&cli.DurationFlag{
				Name:    "api-timeout",
				EnvVars: []string{"API_TIMEOUT"},
				Value:   15 * time.Second,
			},
			&cli.StringFlag{
				Name:     "jwt-secret",
				EnvVars:  []string{"JWT_SECRET"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "http-addr",
				EnvVars: []string{"HTTP_ADDR"},
				Value:   "0.0.0.0:8000",
			},
			&cli.DurationFlag{
				Name:    "heartbeat-ttl",
				EnvVars: []string{"HEARTBEAT_TTL"},
				Value:   2 * time.Minute,
			},
			&cli.StringFlag{
				Name:    "heartbeat-schedule",
				EnvVars: []string{"HEARTBEAT_SCHEDULE"},
				Value:   "@every 1m",
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "INFO",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
