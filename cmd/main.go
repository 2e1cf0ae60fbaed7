package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	_ "kiln_controller/docs"
	"kiln_controller/internal/config"
	modbusctrl "kiln_controller/internal/controllers/modbus"
	mqttctrl "kiln_controller/internal/controllers/mqtt"
	"kiln_controller/internal/handlers"
	"kiln_controller/internal/heater"
	"kiln_controller/internal/logger"
	"kiln_controller/internal/oven"
	"kiln_controller/internal/profile"
	"kiln_controller/internal/repository"
	"kiln_controller/internal/repository/db"
	"kiln_controller/internal/sensor"
	"kiln_controller/internal/server"
	"kiln_controller/internal/service"
)

const defaultConfigDir = "configs"

// @title                       Kiln Controller API
// @version                     1.0
// @description                 Firing profiles, live oven state and operator commands.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load(configDir())
	if err != nil {
		logger.New(logger.ErrorLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Errorw("kiln controller stopped", "err", err)
		os.Exit(1)
	}
	log.Infow("kiln controller stopped")
}

func configDir() string {
	if d := os.Getenv("KILN_CONFIG_DIR"); d != "" {
		return d
	}
	return defaultConfigDir
}

func run(cfg config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := database.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()
	repos := repository.NewRepository(database)

	ht, err := newHeater(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ht.Close(); cerr != nil {
			log.Errorw("failed to release heater", "err", cerr)
		}
	}()

	clock := clockwork.NewRealClock()
	sens, err := sensor.New(cfg.SensorConfig(), newDriver(cfg), ht, clock, log.Named("sensor"))
	if err != nil {
		return err
	}

	recorder := service.NewRecorder(repos.EventRepo, repos.StateRepo, clock, log.Named("recorder"))
	ov, err := oven.New(cfg.OvenConfig(), sens, ht, clock, log.Named("oven"), recorder)
	if err != nil {
		return err
	}

	services := service.NewService(repos, ov, service.AuthConfig{
		SigningKey: cfg.Auth.SigningKey,
		TokenTTL:   cfg.Auth.TokenTTL,
	}, log.Named("service"))
	importProfiles(ctx, services, cfg.Profiles.Dir, log)

	apiHandler := handlers.NewHandler(services, log.Named("http"))
	recorder.Notify(apiHandler.Events())

	g, gctx := errgroup.WithContext(ctx)

	if cfg.MQTT.Enabled {
		ctrl, err := mqttctrl.New(services, cfg.MQTT, clock, log)
		if err != nil {
			return err
		}
		recorder.Notify(ctrl)
		g.Go(func() error { return ctrl.Run(gctx) })
	}
	if cfg.Modbus.Enabled {
		ctrl, err := modbusctrl.New(services, cfg.Modbus, log)
		if err != nil {
			return err
		}
		g.Go(func() error { return ctrl.Run(gctx) })
	}

	g.Go(func() error { return sens.Run(gctx) })
	g.Go(func() error { return ov.Run(gctx) })
	g.Go(func() error { return recorder.Run(gctx, ov, cfg.Oven.RecordInterval) })
	g.Go(func() error {
		srv := server.New(cfg.Port, apiHandler.InitRoutes())
		log.Infow("http server listening", "port", cfg.Port, "simulate", cfg.Oven.Simulate)
		return srv.Run(gctx)
	})

	<-gctx.Done()
	log.Infow("shutting down")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newHeater drives the GPIO relay, or nothing when the oven is simulated.
func newHeater(cfg config.Config, log *logger.Logger) (*heater.Heater, error) {
	if cfg.Oven.Simulate {
		return heater.New(heater.Nop{}, log.Named("heater")), nil
	}
	sw, err := heater.NewGPIOSwitch(cfg.Heater.GPIOChip, cfg.Heater.GPIOPin, cfg.Heater.Invert)
	if err != nil {
		return nil, err
	}
	return heater.New(sw, log.Named("heater")), nil
}

func newDriver(cfg config.Config) sensor.Driver {
	if cfg.Oven.Simulate {
		return nil
	}
	return sensor.NewIIODriver(cfg.Sensor.IIODevice, cfg.Sensor.Fahrenheit)
}

// importProfiles loads schedule files into the store. A bad file stops the
// import but not the controller; profiles can still be managed over HTTP.
func importProfiles(ctx context.Context, svc *service.Service, dir string, log *logger.Logger) {
	ps, err := profile.LoadDir(dir)
	if err != nil {
		log.Warnw("profile_import_failed", "dir", dir, "err", err)
	}
	if len(ps) == 0 {
		return
	}
	n, err := svc.Import(ctx, ps)
	if err != nil {
		log.Warnw("profile_import_failed", "dir", dir, "err", err)
	}
	log.Infow("profiles_imported", "dir", dir, "count", n)
}
