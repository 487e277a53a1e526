package main

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ZacharyEspiritu/tee-assertion-generator/interfaces"
	"github.com/ZacharyEspiritu/tee-assertion-generator/sealing"
	tpm2 "github.com/google/go-tpm/legacy/tpm2"
	"github.com/urfave/cli/v2"
)

var flagTPMDevice = &cli.StringFlag{
	Name:  "tpm-device",
	Value: "/dev/tpmrm0",
	Usage: "TPM character device to use for seal/unseal",
}
var flagOwnerAuth = &cli.StringFlag{
	Name:    "owner-auth",
	EnvVars: []string{"TPM_OWNER_AUTH"},
	Usage:   "TPM owner hierarchy password, empty for the default",
}
var flagShares = &cli.IntFlag{
	Name:  "shares",
	Value: 5,
	Usage: "number of shares to split the root secret into",
}
var flagThreshold = &cli.IntFlag{
	Name:  "threshold",
	Value: 3,
	Usage: "number of shares required to recombine the root secret",
}
var flagOutput = &cli.StringFlag{
	Name:    "output",
	Aliases: []string{"o"},
	Usage:   "write result to file instead of stdout",
}

func main() {
	app := &cli.App{
		Name:  "sealtool",
		Usage: "Manage assertion-generator root secrets and sealed envelopes",
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Generate a fresh hex-encoded root secret",
				Flags: []cli.Flag{flagOutput},
				Action: func(cCtx *cli.Context) error {
					secret, err := sealing.GenerateRootSecret()
					if err != nil {
						return err
					}
					return writeResult(cCtx, []byte(hex.EncodeToString(secret)+"\n"))
				},
			},
			{
				Name:      "split",
				Usage:     "Split a root secret into operator shares",
				ArgsUsage: "<root-secret-file>",
				Flags:     []cli.Flag{flagShares, flagThreshold},
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() != 1 {
						return fmt.Errorf("expected a root secret file argument")
					}

					secret, err := sealing.RootSecretFromFile(cCtx.Args().First())
					if err != nil {
						return err
					}

					shares, err := sealing.SplitRootSecret(secret, cCtx.Int(flagShares.Name), cCtx.Int(flagThreshold.Name))
					if err != nil {
						return err
					}

					for i, share := range shares {
						fmt.Printf("share %d: %s\n", i+1, hex.EncodeToString(share))
					}
					return nil
				},
			},
			{
				Name:      "combine",
				Usage:     "Recombine operator shares into the root secret",
				ArgsUsage: "<hex-share> <hex-share> [...]",
				Flags:     []cli.Flag{flagOutput},
				Action: func(cCtx *cli.Context) error {
					shares := make([][]byte, 0, cCtx.NArg())
					for _, arg := range cCtx.Args().Slice() {
						share, err := hex.DecodeString(strings.TrimSpace(arg))
						if err != nil {
							return fmt.Errorf("malformed share: %w", err)
						}
						shares = append(shares, share)
					}

					secret, err := sealing.CombineRootSecret(shares)
					if err != nil {
						return err
					}
					return writeResult(cCtx, []byte(hex.EncodeToString(secret)+"\n"))
				},
			},
			{
				Name:      "tpm-seal",
				Usage:     "Seal a root secret against the local TPM owner hierarchy",
				ArgsUsage: "<root-secret-file>",
				Flags:     []cli.Flag{flagTPMDevice, flagOwnerAuth, flagOutput},
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() != 1 {
						return fmt.Errorf("expected a root secret file argument")
					}

					secret, err := sealing.RootSecretFromFile(cCtx.Args().First())
					if err != nil {
						return err
					}

					sealer, closeTPM, err := openTPM(cCtx)
					if err != nil {
						return err
					}
					defer closeTPM()

					blob, err := sealer.SealRootSecret(secret)
					if err != nil {
						return err
					}
					return writeResult(cCtx, blob)
				},
			},
			{
				Name:      "tpm-unseal",
				Usage:     "Unseal a TPM-sealed root secret blob",
				ArgsUsage: "<blob-file>",
				Flags:     []cli.Flag{flagTPMDevice, flagOwnerAuth, flagOutput},
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() != 1 {
						return fmt.Errorf("expected a sealed blob file argument")
					}

					blob, err := os.ReadFile(cCtx.Args().First())
					if err != nil {
						return err
					}

					sealer, closeTPM, err := openTPM(cCtx)
					if err != nil {
						return err
					}
					defer closeTPM()

					secret, err := sealer.UnsealRootSecret(blob)
					if err != nil {
						return err
					}
					return writeResult(cCtx, []byte(hex.EncodeToString(secret)+"\n"))
				},
			},
			{
				Name:      "inspect",
				Usage:     "Show the cleartext header and additional data of a sealed envelope",
				ArgsUsage: "<envelope-file>",
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() != 1 {
						return fmt.Errorf("expected an envelope file argument")
					}

					raw, err := os.ReadFile(cCtx.Args().First())
					if err != nil {
						return err
					}

					env, err := interfaces.ParseSealedEnvelope(raw)
					if err != nil {
						return err
					}

					header, err := interfaces.ParseSecretIdentity(env.Header)
					if err != nil {
						return err
					}

					fmt.Printf("name:    %s\n", header.Name)
					fmt.Printf("version: %s\n", header.Version)
					fmt.Printf("purpose: %s\n", header.Purpose)
					fmt.Printf("additional data: %d bytes\n", len(env.AdditionalData))
					fmt.Printf("ciphertext: %d bytes\n", len(env.Ciphertext))
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openTPM(cCtx *cli.Context) (*sealing.TPMSealer, func(), error) {
	device, err := tpm2.OpenTPM(cCtx.String(flagTPMDevice.Name))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open TPM device: %w", err)
	}

	sealer := &sealing.TPMSealer{
		Device:    device,
		OwnerAuth: cCtx.String(flagOwnerAuth.Name),
	}
	return sealer, func() { device.Close() }, nil
}

func writeResult(cCtx *cli.Context, data []byte) error {
	if path := cCtx.String(flagOutput.Name); path != "" {
		return os.WriteFile(path, data, 0o600)
	}
	_, err := os.Stdout.Write(data)
	return err
}
