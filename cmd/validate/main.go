// validate performs a one-shot license validation against the licensing
// authority and prints the verdict as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"lcgate/internal/client"
	"lcgate/internal/config"
	"lcgate/internal/infrastructure"
	"lcgate/internal/license"
	"lcgate/internal/security"
	"lcgate/internal/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "validate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	key := flag.String("key", "", "license key (LC-XXXXXXXX-XXXXXXXX-XXXXXXXX)")
	fingerprint := flag.String("fingerprint", "", "device fingerprint; derived from the host when empty")
	noBind := flag.Bool("no-bind", false, "validate without hardware binding")
	flag.Parse()

	if *key == "" {
		return fmt.Errorf("-key is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	fp := *fingerprint
	if fp == "" && !*noBind {
		provider := security.NewHostFingerprint()
		if fp, err = provider.Fingerprint(); err != nil {
			return fmt.Errorf("failed to derive host fingerprint: %w", err)
		}
	}

	api := client.New(cfg.Authority.BaseURL, cfg.Authority.APIKey, cfg.Authority.Timeout,
		client.WithLogger(logger))

	validator := license.NewValidator(
		license.WithHardwareCap(cfg.License.HardwareCap),
		license.WithLogger(logger),
	)

	cache := license.NewSnapshotCache(cfg.License.CacheTTL, cfg.License.CacheMaxSize)
	defer cache.Stop()

	service := services.NewLicenseService(api, validator, cache, nil, logger)

	verdict, err := service.ValidateKey(context.Background(), *key, fp)
	if err != nil {
		var policyErr *license.PolicyError
		if errors.As(err, &policyErr) {
			out, _ := json.MarshalIndent(policyErr, "", "  ")
			fmt.Println(string(out))
			os.Exit(2)
		}
		return err
	}

	out, err := json.MarshalIndent(verdict, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if !verdict.Valid {
		os.Exit(1)
	}
	return nil
}
