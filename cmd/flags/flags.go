package flags

import (
	"log/slog"
	"time"

	"github.com/ZacharyEspiritu/tee-assertion-generator/api"
	"github.com/ZacharyEspiritu/tee-assertion-generator/common"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *api.HTTPServerConfig {
	metricsAddr := cCtx.String("metrics-addr")
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &api.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}

var StorageFlag = &cli.StringSliceFlag{
	Name:  "storage",
	Value: cli.NewStringSlice("file:///var/lib/assertion-generator"),
	Usage: "storage backend URIs for sealed envelopes (file://, s3://, vault://, ipfs://); repeat for replication",
}

var RootSecretHexFlag = &cli.StringFlag{
	Name:    "root-secret-hex",
	EnvVars: []string{"ROOT_SECRET_HEX"},
	Usage:   "hex-encoded 32-byte sealing root secret (testing only, prefer --root-secret-file)",
}

var RootSecretFileFlag = &cli.StringFlag{
	Name:  "root-secret-file",
	Usage: "file holding the hex-encoded sealing root secret",
}

var SealingPolicyFlag = &cli.StringFlag{
	Name:  "sealing-policy",
	Value: "signer",
	Usage: "sealing key scope: 'signer' or 'instance'",
}

var SignerMeasurementFlag = &cli.StringFlag{
	Name:  "signer-measurement",
	Usage: "hex-encoded 32-byte signer measurement of this enclave's trust domain",
}

var InstanceMeasurementFlag = &cli.StringFlag{
	Name:  "instance-measurement",
	Usage: "hex-encoded 32-byte measurement of this exact enclave instance",
}

var OperatorsFlag = &cli.StringSliceFlag{
	Name:  "operator",
	Usage: "operator address allowed to endorse certificate updates; repeat for multiple",
}

var AttestationTypeFlag = &cli.StringFlag{
	Name:  "attestation-type",
	Value: "qemu-tdx",
	Usage: "local attestation mechanism used for certification quotes",
}

var BootstrapFlag = &cli.BoolFlag{
	Name:  "bootstrap",
	Value: false,
	Usage: "generate and seal a fresh attestation key if no sealed envelope exists yet",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
