package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	_ "github.com/Siroj42/heinzelmann/migrations"

	"github.com/Siroj42/heinzelmann/internal/actor"
	"github.com/Siroj42/heinzelmann/internal/frontend"
	"github.com/Siroj42/heinzelmann/internal/infrastructure/config"
	"github.com/Siroj42/heinzelmann/internal/infrastructure/database"
	"github.com/Siroj42/heinzelmann/internal/infrastructure/influxdb"
	"github.com/Siroj42/heinzelmann/internal/infrastructure/logging"
	"github.com/Siroj42/heinzelmann/internal/infrastructure/mqtt"
	"github.com/Siroj42/heinzelmann/internal/journal"
	"github.com/Siroj42/heinzelmann/internal/nrepl"
	"github.com/Siroj42/heinzelmann/internal/schedule"
)

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the hub (the default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHub(cmd, *configPath)
		},
	}
}

func runHub(cmd *cobra.Command, configPath string) error {
	return run(cmd.Context(), config.ResolvePath(configPath), cmd.InOrStdin(), cmd.OutOrStdout())
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: Configuration file to load
//   - stdin: Console input (read only when the console is enabled)
//   - stdout: Console output and the program's display output
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string, stdin io.Reader, stdout io.Writer) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting heinzelmann",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// The console prompt owns stdout, so logs move to stderr
	if cfg.Console.Enabled {
		log = logging.NewWithWriter(os.Stderr, cfg.Logging, version)
	} else {
		log = logging.New(cfg.Logging, version)
	}
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	program, err := os.ReadFile(cfg.Hub.Program)
	if err != nil {
		return fmt.Errorf("reading program: %w", err)
	}
	log.Info("program loaded", "path", cfg.Hub.Program, "bytes", len(program))

	var observers []actor.Observer

	// Open the evaluation journal (optional)
	var db *database.DB
	var recorder *journal.Recorder
	if cfg.Journal.Enabled {
		db, err = openDatabase(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		log.Info("database connected", "path", cfg.Database.Path)

		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database migrations complete")

		recorder = journal.NewRecorder(journal.NewSQLiteRepository(db.DB), journal.RecorderOptions{
			RecordAll: cfg.Journal.RecordAll,
			Logger:    log.Component("journal"),
		})
		observers = append(observers, recorder)
	} else {
		log.Info("journal disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		observers = append(observers, frontend.TelemetryObserver(influxClient))
	} else {
		log.Info("InfluxDB disabled")
	}

	hub, err := actor.New(actor.Options{
		Program:   string(program),
		QueueSize: cfg.Hub.QueueSize,
		Output:    stdout,
		Logger:    log.Component("actor"),
		Observers: observers,
	})
	if err != nil {
		return fmt.Errorf("creating actor: %w", err)
	}

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Closed before the MQTT client so a blocked delivery is released first
	bus := frontend.NewBusAdapter(mqttClient, cfg.MQTT.IngestQueue)
	defer bus.Close()

	var timerRecorder frontend.TimerRecorder
	if influxClient != nil {
		timerRecorder = influxClient
	}
	firer := frontend.NewTimerFirer(hub, timerRecorder, log.Component("timer"))
	sched := schedule.New(firer.Fire, schedule.WithLogger(log.Component("schedule")))

	var repl *nrepl.Server
	if cfg.REPL.Enabled {
		repl, err = nrepl.NewServer(cfg.REPL, hub, log.Component("nrepl"))
		if err != nil {
			return fmt.Errorf("creating REPL server: %w", err)
		}
	} else {
		log.Info("REPL server disabled")
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return sched.Run(gctx) })
	g.Go(func() error {
		return frontend.Ingest(gctx, bus.Events(), hub, log.Component("bus"))
	})
	if recorder != nil {
		g.Go(func() error { return recorder.Run(gctx) })
	}
	if repl != nil {
		g.Go(func() error { return repl.ListenAndServe(gctx) })
	}
	if cfg.Console.Enabled {
		console := frontend.NewConsole(stdin, stdout, cfg.Console.Prompt, hub, log.Component("console"))
		g.Go(func() error { return console.Run(gctx) })
	}

	// The program runs once the actor has seen both announcements
	g.Go(func() error {
		return announce(gctx, hub, actor.BusReady{Bus: bus}, actor.TimersReady{Registrations: sched.Registrations()})
	})

	log.Info("initialisation complete, waiting for shutdown signal")

	if err := g.Wait(); err != nil {
		return fmt.Errorf("hub stopped: %w", err)
	}

	log.Info("shutdown signal received, cleaning up")

	if recorder != nil && recorder.Dropped() > 0 {
		log.Warn("journal entries dropped", "count", recorder.Dropped())
	}

	log.Info("heinzelmann stopped")
	return nil
}

// announce sends the readiness messages in order. Cancellation is not an
// error; a stopped actor reports its own failure through Run.
func announce(ctx context.Context, hub *actor.Actor, msgs ...actor.Message) error {
	for _, msg := range msgs {
		if err := hub.Send(ctx, msg); err != nil {
			if ctx.Err() != nil || errors.Is(err, actor.ErrStopped) {
				return nil
			}
			return fmt.Errorf("announcing readiness: %w", err)
		}
	}
	return nil
}

// openDatabase opens the journal database described by cfg.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Journal database to check (may be nil if disabled)
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
