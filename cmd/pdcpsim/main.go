// Command pdcpsim is a reference harness for github.com/marmos91/pdcpgo: it
// loads a bearer table the same way an embedding eNB/gNB task scheduler
// would, wires a UE-side and network-side PDCP entity back to back over an
// in-process loopback RLC, and drives a handful of SDUs through them to
// exercise write_sdu, write_pdu and status reporting end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/pdcpgo/internal/logger"
	"github.com/marmos91/pdcpgo/internal/telemetry"
	"github.com/marmos91/pdcpgo/pkg/bufpool"
	"github.com/marmos91/pdcpgo/pkg/pdcp"
	"github.com/marmos91/pdcpgo/pkg/pdcpconfig"
	"github.com/marmos91/pdcpgo/pkg/pdcpmetrics"
	_ "github.com/marmos91/pdcpgo/pkg/pdcpmetrics/prometheus"
	"github.com/marmos91/pdcpgo/pkg/pdcpregistry"
	"github.com/marmos91/pdcpgo/pkg/pdcptimer"
)

func main() {
	configPath := flag.String("config", "", "path to a bearer table YAML file (defaults to a single built-in demo DRB)")
	sampleOut := flag.String("sample-config", "", "write a sample bearer table to this path and exit")
	flag.Parse()

	if *sampleOut != "" {
		if err := writeSampleConfig(*sampleOut); err != nil {
			fmt.Fprintln(os.Stderr, "pdcpsim:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "pdcpsim:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	table, err := pdcpconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.Config{Level: table.Logging.Level, Format: table.Logging.Format, Output: table.Logging.Output}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx := context.Background()
	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        table.Telemetry.Enabled,
		ServiceName:    "pdcpsim",
		ServiceVersion: "dev",
		Endpoint:       table.Telemetry.Endpoint,
		Insecure:       table.Telemetry.Insecure,
		SampleRate:     table.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() { _ = shutdown(ctx) }()

	var metrics pdcpmetrics.PDCPMetrics
	if table.Metrics.Enabled {
		pdcpmetrics.InitRegistry(nil)
		metrics = pdcpmetrics.NewPDCPMetrics()
	}

	ueEntry, gnbEntry, err := demoBearers(table)
	if err != nil {
		return fmt.Errorf("resolve bearer table: %w", err)
	}

	ueCfg, err := ueEntry.ToBearerConfig()
	if err != nil {
		return fmt.Errorf("ue bearer config: %w", err)
	}
	ueSec, err := ueEntry.ToSecurityConfig()
	if err != nil {
		return fmt.Errorf("ue security config: %w", err)
	}
	gnbCfg, err := gnbEntry.ToBearerConfig()
	if err != nil {
		return fmt.Errorf("gnb bearer config: %w", err)
	}
	gnbSec, err := gnbEntry.ToSecurityConfig()
	if err != nil {
		return fmt.Errorf("gnb security config: %w", err)
	}

	timers := pdcptimer.NewRealFactory(nil)
	pool := bufpool.NewPool(nil)

	ueSink := &loggingUpperLayer{side: "ue"}
	gnbSink := &loggingUpperLayer{side: "gnb"}

	uplink := &loopbackRLC{}   // carries UE -> gNB PDUs
	downlink := &loopbackRLC{} // carries gNB -> UE PDUs

	ue, err := pdcp.NewEntity(ueCfg, ueSec, uplink, ueSink, timers, pool, metrics, logger.With("side", "ue"))
	if err != nil {
		return fmt.Errorf("construct ue entity: %w", err)
	}
	gnb, err := pdcp.NewEntity(gnbCfg, gnbSec, downlink, gnbSink, timers, pool, metrics, logger.With("side", "gnb"))
	if err != nil {
		return fmt.Errorf("construct gnb entity: %w", err)
	}
	uplink.peer = gnb
	downlink.peer = ue

	ueRegistry := pdcpregistry.New()
	if err := ueRegistry.Register(ueCfg.BearerID, ue); err != nil {
		return fmt.Errorf("register ue entity: %w", err)
	}
	defer ueRegistry.Unregister(ueCfg.BearerID)

	gnbRegistry := pdcpregistry.New()
	if err := gnbRegistry.Register(gnbCfg.BearerID, gnb); err != nil {
		return fmt.Errorf("register gnb entity: %w", err)
	}
	defer gnbRegistry.Unregister(gnbCfg.BearerID)

	const sduCount = 5
	for i := 0; i < sduCount; i++ {
		sdu := []byte(fmt.Sprintf("pdcpsim sdu %d", i))
		if err := ue.WriteSDU(ctx, sdu); err != nil {
			logger.Error("write_sdu failed", "index", i, "error", err)
		}
	}

	report, err := gnb.SendStatusReport()
	switch {
	case err == pdcp.ErrStatusReportNotSupported:
		logger.Info("pdcpsim: gnb bearer not configured for status reports, skipping")
	case err != nil:
		return fmt.Errorf("send status report: %w", err)
	default:
		if err := ue.WritePDU(ctx, report); err != nil {
			return fmt.Errorf("deliver status report to ue: %w", err)
		}
	}

	// Give any discard/reorder timers armed by the exchange above a chance
	// to fire against the real clock before the registries are torn down.
	time.Sleep(20 * time.Millisecond)

	if table.Metrics.Enabled {
		if reg := pdcpmetrics.GetRegistry(); reg != nil {
			families, gatherErr := reg.Gather()
			if gatherErr != nil {
				logger.Warn("pdcpsim: metrics gather failed", "error", gatherErr)
			} else {
				logger.Info("pdcpsim: metrics collected", "families", len(families))
			}
		}
	}

	logger.Info("pdcpsim: run complete", "sdus_sent", sduCount, "sdus_delivered_to_gnb", len(gnbSink.delivered()))
	return nil
}

// demoBearers resolves the UE-side and network-side bearer entries to drive.
// The config file need only describe one side (conventionally the UE's
// uplink leg); the peer is derived by flipping tx_direction, mirroring how a
// single RRC bearer configuration implies both endpoints' PDCP context.
func demoBearers(table *pdcpconfig.Table) (ue, gnb pdcpconfig.BearerEntry, err error) {
	ue = defaultBearerEntry()
	if len(table.Bearers) > 0 {
		ue = table.Bearers[0]
	}

	gnb = ue
	switch strings.ToLower(ue.TXDirection) {
	case "uplink":
		gnb.TXDirection = "downlink"
	case "downlink":
		gnb.TXDirection = "uplink"
	default:
		return ue, gnb, fmt.Errorf("pdcpsim: unknown tx_direction %q", ue.TXDirection)
	}
	return ue, gnb, nil
}

func defaultBearerEntry() pdcpconfig.BearerEntry {
	return pdcpconfig.BearerEntry{
		BearerID:             1,
		RAT:                  "NR",
		Type:                 "DRB",
		SNLength:             12,
		TXDirection:          "uplink",
		StatusReportRequired: true,
		Security: pdcpconfig.SecurityEntry{
			IntegrityAlgorithm: "EIA2",
			IntegrityKeyHex:    "000102030405060708090a0b0c0d0e0f",
			IntegrityEnabled:   "both",
			CipherAlgorithm:    "EEA2",
			CipherKeyHex:       "101112131415161718191a1b1c1d1e1f",
			CipherEnabled:      "both",
		},
	}
}

func writeSampleConfig(path string) error {
	table := &pdcpconfig.Table{
		Logging:   pdcpconfig.LoggingConfig{Level: "INFO", Format: "text", Output: "stdout"},
		Telemetry: pdcpconfig.TelemetryConfig{Enabled: false, Endpoint: "localhost:4317", Insecure: true, SampleRate: 1.0},
		Metrics:   pdcpconfig.MetricsConfig{Enabled: true},
		Bearers:   []pdcpconfig.BearerEntry{defaultBearerEntry()},
	}
	if err := pdcpconfig.Save(table, path); err != nil {
		return err
	}
	fmt.Println("pdcpsim: wrote sample bearer table to", path)
	return nil
}

// loopbackRLC stands in for the RLC layer below a PDCP entity: it hands the
// packed PDU straight to peer's write_pdu, as though the radio link between
// the two endpoints were lossless and instantaneous.
type loopbackRLC struct {
	peer *pdcp.PDCPEntity
}

func (l *loopbackRLC) WriteSDU(lcid uint32, pdu []byte) error {
	if l.peer == nil {
		return fmt.Errorf("pdcpsim: loopback has no peer wired")
	}
	return l.peer.WritePDU(context.Background(), pdu)
}

func (l *loopbackRLC) DiscardSDU(lcid uint32, sn uint32) error {
	logger.Info("pdcpsim: rlc discard_sdu", "lcid", lcid, "sn", sn)
	return nil
}

// loggingUpperLayer stands in for RRC/the IP stack above a PDCP entity: it
// logs and retains every delivered SDU and notification for the harness's
// closing summary.
type loggingUpperLayer struct {
	side string

	mu   sync.Mutex
	sdus [][]byte
}

func (u *loggingUpperLayer) DeliverSDU(bearerID uint32, sdu []byte) {
	u.mu.Lock()
	u.sdus = append(u.sdus, append([]byte(nil), sdu...))
	u.mu.Unlock()
	logger.Info("pdcpsim: sdu delivered", "side", u.side, "bearer_id", bearerID, "sdu", string(sdu))
}

func (u *loggingUpperLayer) NotifyIntegrityFailure(bearerID uint32) {
	logger.Warn("pdcpsim: integrity failure", "side", u.side, "bearer_id", bearerID)
}

func (u *loggingUpperLayer) NotifyCountWraparound(bearerID uint32) {
	logger.Warn("pdcpsim: count wraparound", "side", u.side, "bearer_id", bearerID)
}

func (u *loggingUpperLayer) delivered() [][]byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.sdus
}
