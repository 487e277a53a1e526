package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZacharyEspiritu/tee-assertion-generator/api/assertionhandler"
	"github.com/ZacharyEspiritu/tee-assertion-generator/attestation"
	"github.com/ZacharyEspiritu/tee-assertion-generator/cmd/flags"
	"github.com/ZacharyEspiritu/tee-assertion-generator/cryptoutils"
	"github.com/ZacharyEspiritu/tee-assertion-generator/httpserver"
	"github.com/ZacharyEspiritu/tee-assertion-generator/interfaces"
	"github.com/ZacharyEspiritu/tee-assertion-generator/metrics"
	"github.com/ZacharyEspiritu/tee-assertion-generator/sealing"
	"github.com/ZacharyEspiritu/tee-assertion-generator/secrets"
	"github.com/ZacharyEspiritu/tee-assertion-generator/storage"
	"github.com/urfave/cli/v2"
)

var serviceLogFlag = flags.LogServiceFlagFn("assertion-generator")

func main() {
	app := &cli.App{
		Name:  "assertion-generator",
		Usage: "Serve hardware-bound assertions over a sealed attestation key",
		Flags: append([]cli.Flag{
			flags.ListenAddrFlag,
			flags.StorageFlag,
			flags.RootSecretHexFlag,
			flags.RootSecretFileFlag,
			flags.SealingPolicyFlag,
			flags.SignerMeasurementFlag,
			flags.InstanceMeasurementFlag,
			flags.OperatorsFlag,
			flags.AttestationTypeFlag,
			flags.BootstrapFlag,
			serviceLogFlag,
		}, flags.CommonFlags...),
		Action: runServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServer(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	rootSecret, err := loadRootSecret(cCtx)
	if err != nil {
		logger.Error("Failed to load root secret", "err", err)
		return err
	}
	defer cryptoutils.Zeroize(rootSecret)

	policy, err := interfaces.SealingPolicyFromString(cCtx.String(flags.SealingPolicyFlag.Name))
	if err != nil {
		logger.Error("Invalid sealing policy", "err", err)
		return err
	}

	signerMeasurement, err := interfaces.NewMeasurementFromHex(cCtx.String(flags.SignerMeasurementFlag.Name))
	if err != nil {
		logger.Error("Invalid signer measurement", "err", err)
		return err
	}

	var instanceMeasurement interfaces.Measurement
	if raw := cCtx.String(flags.InstanceMeasurementFlag.Name); raw != "" {
		instanceMeasurement, err = interfaces.NewMeasurementFromHex(raw)
		if err != nil {
			logger.Error("Invalid instance measurement", "err", err)
			return err
		}
	} else if policy == interfaces.SealToInstance {
		return errors.New("instance-measurement is required for the instance sealing policy")
	}

	sealer, err := sealing.NewLocalSealer(sealing.LocalSealerConfig{
		RootSecret:          rootSecret,
		Policy:              policy,
		SignerMeasurement:   signerMeasurement,
		InstanceMeasurement: instanceMeasurement,
		DefaultHeader:       secrets.DefaultSecretIdentity(),
	})
	if err != nil {
		logger.Error("Failed to create sealer", "err", err)
		return err
	}

	operators := []interfaces.OperatorAddress{}
	for _, raw := range cCtx.StringSlice(flags.OperatorsFlag.Name) {
		addr, err := interfaces.NewOperatorAddressFromHex(raw)
		if err != nil {
			logger.Error("Invalid operator address", "address", raw, "err", err)
			return err
		}
		operators = append(operators, addr)
	}

	attestationProvider, err := cryptoutils.AttestationProviderFromString(cCtx.String(flags.AttestationTypeFlag.Name))
	if err != nil {
		logger.Error("Unsupported attestation type", "err", err)
		return err
	}

	store, err := envelopeStore(cCtx, logger)
	if err != nil {
		logger.Error("Failed to create envelope store", "err", err)
		return err
	}

	generator, err := loadOrBootstrapGenerator(cCtx, logger, sealer, store)
	if err != nil {
		return err
	}

	handler := assertionhandler.NewHandler(&assertionhandler.HandlerConfig{
		Generator:           generator,
		Sealer:              sealer,
		Store:               store,
		AttestationProvider: attestationProvider,
		TrustedSigner:       signerMeasurement,
		Operators:           operators,
		Log:                 logger,
	})

	cfg := flags.ConfigureServer(cCtx, logger, cCtx.String(flags.ListenAddrFlag.Name))
	server, err := httpserver.New(cfg, handler)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	server.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	server.Shutdown()
	logger.Info("Server shutdown complete")

	return nil
}

func loadRootSecret(cCtx *cli.Context) ([]byte, error) {
	if path := cCtx.String(flags.RootSecretFileFlag.Name); path != "" {
		return sealing.RootSecretFromFile(path)
	}
	if hexSecret := cCtx.String(flags.RootSecretHexFlag.Name); hexSecret != "" {
		return sealing.RootSecretFromHex(hexSecret)
	}
	return nil, errors.New("either root-secret-file or root-secret-hex is required")
}

func envelopeStore(cCtx *cli.Context, logger *slog.Logger) (interfaces.EnvelopeStore, error) {
	uris := cCtx.StringSlice(flags.StorageFlag.Name)
	locations := make([]interfaces.StorageBackendLocation, 0, len(uris))
	for _, uri := range uris {
		location, err := interfaces.NewStorageBackendLocation(uri)
		if err != nil {
			return nil, fmt.Errorf("invalid storage URI %q: %w", uri, err)
		}
		locations = append(locations, location)
	}

	factory := storage.NewEnvelopeStoreFactory(logger)
	return factory.CreateMultiStore(locations)
}

// loadOrBootstrapGenerator recovers the attestation key from the sealed
// envelope in persistent storage. If no envelope exists and --bootstrap was
// given it generates a fresh key, seals it with an empty certificate chain
// set, and persists the envelope before serving. Without --bootstrap a
// missing envelope is fatal.
func loadOrBootstrapGenerator(cCtx *cli.Context, logger *slog.Logger, sealer interfaces.Sealer, store interfaces.EnvelopeStore) (*attestation.AssertionGenerator, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	raw, err := store.Load(ctx, assertionhandler.EnvelopeSlot)
	switch {
	case err == nil:
		env, err := interfaces.ParseSealedEnvelope(raw)
		if err != nil {
			logger.Error("Persisted envelope is malformed", "err", err)
			return nil, err
		}

		key, chains, err := secrets.Unseal(sealer, env)
		metrics.UnsealOperations.WithLabelValues(metrics.Outcome(err)).Inc()
		if err != nil {
			logger.Error("Failed to unseal attestation key", "err", err)
			return nil, err
		}

		logger.Info("Recovered sealed attestation key", "certificateChains", len(chains))
		return attestation.NewAssertionGenerator(key, chains)

	case errors.Is(err, interfaces.ErrEnvelopeNotFound):
		if !cCtx.Bool(flags.BootstrapFlag.Name) {
			logger.Error("No sealed attestation key found and bootstrap is disabled")
			return nil, fmt.Errorf("no sealed envelope in slot %q, rerun with --bootstrap to generate a key", assertionhandler.EnvelopeSlot)
		}

		logger.Info("Bootstrapping a fresh attestation key")
		key, err := cryptoutils.NewEcdsaP256SigningKey()
		if err != nil {
			logger.Error("Failed to generate attestation key", "err", err)
			return nil, err
		}

		env, err := secrets.Seal(sealer, sealer.DefaultHeader(), nil, key)
		metrics.SealOperations.WithLabelValues(metrics.Outcome(err)).Inc()
		if err != nil {
			logger.Error("Failed to seal attestation key", "err", err)
			return nil, err
		}

		serialized, err := env.Serialize()
		if err != nil {
			return nil, err
		}

		if err := store.Save(ctx, assertionhandler.EnvelopeSlot, serialized); err != nil {
			logger.Error("Failed to persist sealed attestation key", "err", err)
			return nil, err
		}

		logger.Info("Sealed attestation key persisted, awaiting certification")
		return attestation.NewAssertionGenerator(key, nil)

	default:
		logger.Error("Failed to load sealed envelope", "err", err)
		return nil, err
	}
}
