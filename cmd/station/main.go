package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lorawan-station/station/internal/config"
	"github.com/lorawan-station/station/internal/hal"
	"github.com/lorawan-station/station/internal/ipc"
	"github.com/lorawan-station/station/internal/ral"
	"github.com/lorawan-station/station/internal/region"
	"github.com/lorawan-station/station/internal/s2e"
	"github.com/lorawan-station/station/internal/status"
	"github.com/lorawan-station/station/internal/transport"
	"github.com/lorawan-station/station/internal/txsched"
)

// ppsDriftBudget is how far the PPS-implied tick count may diverge
// from the wall clock before TimeDomain.OnPPS counts it as a fault.
const ppsDriftBudget = 50 * time.Millisecond

// dutyCycleWindow is the rolling window the duty-cycle ledger books
// airtime against (the original uses one hour for the 1% bands).
const dutyCycleWindow = time.Hour

func main() {
	configPath := flag.String("config", "config/station.yaml", "station config file path")
	slaveConfigPath := flag.String("slave-config", "", "per-slave config override file path")
	showConfig := flag.Bool("show-config", false, "print the resolved config and exit")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(*configPath, *slaveConfigPath)
	if err != nil {
		log.Fatal().Err(err).Str("config_path", *configPath).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Log.Level).Msg("invalid log level, defaulting to info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if *showConfig {
		fmt.Println(cfg.Summary())
		return
	}

	log.Info().Str("config_path", *configPath).Str("summary", cfg.Summary()).Msg("station starting")

	reg, err := region.Get(cfg.Station.Region)
	if err != nil {
		log.Fatal().Err(err).Msg("unknown region")
	}

	if cfg.LNS.ProtocolVersion != "" {
		if err := s2e.NegotiateVersion(cfg.LNS.ProtocolVersion); err != nil {
			log.Fatal().Err(err).Msg("LNS protocol version negotiation failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	td := ral.NewTimeDomain(log.Logger)
	session := s2e.NewSession(reg, td, log.Logger)

	concentrator := newConcentrator(cfg)
	rf0, rf1 := ral.DefaultFrontEnds(reg)
	if cfg.Radio.RF0CenterFreq != 0 {
		rf0.CenterFreq = cfg.Radio.RF0CenterFreq
	}
	if cfg.Radio.RF1CenterFreq != 0 {
		rf1.CenterFreq = cfg.Radio.RF1CenterFreq
	}
	channels, err := ral.AllocateChannels(reg, rf0, rf1, cfg.Radio.MaxIFChains)
	if err != nil {
		log.Fatal().Err(err).Msg("channel allocation failed")
	}
	if err := concentrator.Configure(channels); err != nil {
		log.Fatal().Err(err).Msg("concentrator configuration failed")
	}

	registry := prometheus.NewRegistry()
	metrics := status.NewMetrics(registry)

	if cfg.Status.Enabled {
		statusSrv := status.NewServer(cfg.Station.Region, registry)
		go func() {
			if err := statusSrv.ListenAndServe(ctx, cfg.Status.Addr); err != nil {
				log.Error().Err(err).Msg("status server stopped")
			}
		}()
	}

	var lnsClient *transport.Client
	if cfg.LNS.URI != "" {
		lnsClient = transport.NewClient(cfg.LNS.URI, log.Logger)
		lnsClient.OnConnect = func(c *transport.Client) error {
			msg, err := json.Marshal(s2e.StationVersionMessage(cfg.Station.StationEUI, ""))
			if err != nil {
				return err
			}
			return c.SendJSON(msg)
		}
		go func() {
			if err := lnsClient.Connect(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("LNS connection ended")
			}
		}()
	}

	var master *ipc.Master
	if cfg.IPC.Enabled && cfg.IPC.Role == "master" {
		master, err = ipc.NewMaster(cfg.IPC.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Msg("IPC master connect failed")
		}
		defer master.Close()
	}

	rxCh, err := concentrator.Start(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("concentrator start failed")
	}

	admission := txsched.NewAdmission(dutyCycleWindow)
	go runEventLoop(ctx, session, rxCh, lnsClient, metrics)
	go runTXPipeline(ctx, session, concentrator, admission, cfg.Radio.AntennaGain, lnsClient, metrics)
	go runPPSLoop(ctx, concentrator, session, ppsDriftBudget, metrics, cancel)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case <-ctx.Done():
	}

	cancel()
	concentrator.Stop()
	log.Info().Msg("station shut down")
}

func newConcentrator(cfg *config.Config) hal.Concentrator {
	switch cfg.Radio.Backend {
	case "simulator", "":
		return hal.NewSimulator()
	default:
		log.Fatal().Str("backend", cfg.Radio.Backend).Msg("unsupported radio backend; only the simulator ships in this build")
		return nil
	}
}

// runEventLoop is the single-goroutine session loop spec.md §5
// describes: every RX job and inbound LNS message is handled serially,
// with no locking required across session state.
func runEventLoop(ctx context.Context, session *s2e.Session, rxCh <-chan hal.RXJob, lnsClient *transport.Client, metrics *status.Metrics) {
	var inbound <-chan []byte
	if lnsClient != nil {
		inbound = lnsClient.Inbound
	}
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-rxCh:
			out := session.HandleUplink(job)
			if out == nil {
				continue
			}
			metrics.UplinksTotal.Inc()
			if lnsClient != nil {
				if b, err := encodeOutbound(out); err == nil {
					lnsClient.SendJSON(b)
				}
			}
		case raw := <-inbound:
			if raw == nil {
				continue
			}
			handleInbound(session, raw, metrics)
		}
	}
}
