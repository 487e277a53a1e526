package main

import (
	"crypto/tls"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	capi "github.com/ZacharyEspiritu/tee-assertion-generator/api"
	"github.com/ZacharyEspiritu/tee-assertion-generator/api/assertionhandler"
	"github.com/ZacharyEspiritu/tee-assertion-generator/interfaces"
	"github.com/ZacharyEspiritu/tee-assertion-generator/serviceresolver"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli/v2"
)

var flagInstanceAddr *cli.StringFlag = &cli.StringFlag{
	Name:  "instance-addr",
	Value: "https://127.0.0.1:8080",
	Usage: "Assertion generator instance to connect to",
}
var flagServiceDomain *cli.StringFlag = &cli.StringFlag{
	Name:  "service-domain",
	Usage: "DNS SRV domain to discover an instance through, overrides instance-addr",
}
var flagResolverAddr *cli.StringFlag = &cli.StringFlag{
	Name:  "resolver-addr",
	Value: serviceresolver.DefaultResolverAddr,
	Usage: "DNS server used for SRV discovery",
}
var flagInstancePort *cli.IntFlag = &cli.IntFlag{
	Name:  "instance-port",
	Value: 8080,
	Usage: "API port of discovered instances",
}
var flagPrivateKey *cli.StringFlag = &cli.StringFlag{
	Name:     "privkey",
	Required: true,
	EnvVars:  []string{"OPERATOR_PRIVKEY"},
	Usage:    "Private key to use for signing",
}
var flagInsecureTLS *cli.BoolFlag = &cli.BoolFlag{
	Name:  "insecure-tls",
	Value: true,
	Usage: "Skip TLS verification (not recommended for production, use cvm proxy instead)",
}

func main() {
	app := &cli.App{
		Name:  "operator client",
		Usage: "Endorse attestation key certificate chains for an assertion generator instance",
		Flags: []cli.Flag{
			flagInstanceAddr,
			flagServiceDomain,
			flagResolverAddr,
			flagInstancePort,
			flagInsecureTLS,
			flagPrivateKey,
		},
		Commands: []*cli.Command{
			{
				Name:      "show-certification",
				Usage:     "Fetch and print the instance's certification material",
				ArgsUsage: "",
				Action: func(cCtx *cli.Context) error {
					client, err := newClient(cCtx)
					if err != nil {
						return err
					}

					certification, err := client.Certification()
					if err != nil {
						return err
					}

					out, err := json.MarshalIndent(certification, "", "  ")
					if err != nil {
						return err
					}
					fmt.Println(string(out))
					return nil
				},
			},
			{
				Name:        "endorse-certificates",
				Usage:       "Sign and submit new certificate chains for the attestation key",
				ArgsUsage:   "<chain.pem> [<chain.pem> ...]",
				Description: "Each argument is a PEM file holding one chain, leaf first, root last.",
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() == 0 {
						return fmt.Errorf("expected at least one PEM chain file")
					}

					chains := make([]interfaces.CertificateChain, 0, cCtx.NArg())
					for _, path := range cCtx.Args().Slice() {
						chain, err := loadChainPEM(path)
						if err != nil {
							return err
						}
						chains = append(chains, chain)
					}

					req := capi.CertificateUpdateRequest{CertificateChains: chains}
					if err := capi.SignUpdateRequest(&req, cCtx.String(flagPrivateKey.Name)); err != nil {
						return fmt.Errorf("failed to sign update request: %w", err)
					}

					privateKey, err := crypto.HexToECDSA(cCtx.String(flagPrivateKey.Name))
					if err != nil {
						return fmt.Errorf("failed to parse private key: %w", err)
					}
					fmt.Printf("Endorsing with address: %s\n", crypto.PubkeyToAddress(privateKey.PublicKey).Hex())

					client, err := newClient(cCtx)
					if err != nil {
						return err
					}
					if err := client.UpdateCertificates(req); err != nil {
						return err
					}

					fmt.Println("Certificate chains accepted")
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newClient(cCtx *cli.Context) (*assertionhandler.Client, error) {
	httpClient := &http.Client{}
	if cCtx.Bool(flagInsecureTLS.Name) {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		}
	}

	baseURL := cCtx.String(flagInstanceAddr.Name)
	if domain := cCtx.String(flagServiceDomain.Name); domain != "" {
		resolver := &serviceresolver.Resolver{Addr: cCtx.String(flagResolverAddr.Name)}
		instances, err := resolver.ResolveService([]string{domain})
		if err != nil {
			return nil, err
		}
		target := strings.TrimSuffix(instances.Targets[0], ".")
		baseURL = fmt.Sprintf("https://%s:%d", target, cCtx.Int(flagInstancePort.Name))
		fmt.Printf("Discovered instance: %s\n", baseURL)
	}

	return &assertionhandler.Client{
		BaseURL:    baseURL,
		HTTPClient: httpClient,
	}, nil
}

// loadChainPEM reads every PEM certificate block in the file into one
// chain, preserving order.
func loadChainPEM(path string) (interfaces.CertificateChain, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return interfaces.CertificateChain{}, err
	}

	var chain interfaces.CertificateChain
	for rest := raw; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		chain.Certificates = append(chain.Certificates, interfaces.Certificate{
			Format: interfaces.X509PEM,
			Data:   pem.EncodeToMemory(block),
		})
	}

	if len(chain.Certificates) == 0 {
		return interfaces.CertificateChain{}, fmt.Errorf("no certificates found in %s", path)
	}
	return chain, nil
}
