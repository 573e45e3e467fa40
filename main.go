package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/chronlc/cardprobe/pkg/config"
	"github.com/chronlc/cardprobe/pkg/emv"
	"github.com/chronlc/cardprobe/pkg/logger"
	"github.com/chronlc/cardprobe/pkg/transport"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(cfg.LogDir); err != nil {
		log.Printf("Warning: Failed to initialize logging: %v", err)
	}
	defer logger.Close()

	if err := run(cfg); err != nil {
		logger.Error("Run failed: %v", err)
		log.Fatalf("Error: %v", err)
	}
}

func run(cfg *config.Config) error {
	// Ctrl-C cancels the card wait and the transaction in flight.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	decision, err := cfg.DecisionValue()
	if err != nil {
		return err
	}

	var profile *config.Profile
	if cfg.Profile != "" {
		profile, err = config.LoadProfile(cfg.Profile)
		if err != nil {
			return err
		}
	}
	params, err := profile.Params(cfg)
	if err != nil {
		return err
	}

	card, err := openTransport(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := card.Close(); err != nil {
			log.Printf("Warning: Failed to close transport: %v", err)
		}
	}()

	engine, err := emv.NewEngine(card,
		emv.WithTerminalParams(params),
		emv.WithDecision(decision),
		emv.WithTimeout(cfg.Timeout),
	)
	if err != nil {
		return err
	}

	session := engine.Run(ctx)
	fmt.Println(session.Describe())

	if cfg.JSONOut != "" {
		if err := writeReport(cfg.JSONOut, session); err != nil {
			return err
		}
		fmt.Printf(">> Report written to %s\n", cfg.JSONOut)
	}

	if !session.Completed {
		return fmt.Errorf("transaction incomplete: %s", session.FailureReason)
	}
	return nil
}

// closableTransport is what both readers provide beyond the raw exchange.
type closableTransport interface {
	emv.Transport
	Close() error
}

func openTransport(ctx context.Context, cfg *config.Config) (closableTransport, error) {
	switch cfg.Transport {
	case "pcsc":
		reader, err := transport.OpenPCSC()
		if err != nil {
			return nil, fmt.Errorf("pcsc: %w", err)
		}
		fmt.Printf(">> Using reader: %s\n", reader.Reader())
		return reader, nil

	case "pn532":
		reader, err := transport.OpenPN532(cfg.Port, cfg.BaudRate)
		if err != nil {
			return nil, fmt.Errorf("pn532: %w", err)
		}
		fmt.Println(">> Waiting for card...")
		card, err := reader.WaitForCard(ctx)
		if err != nil {
			if closeErr := reader.Close(); closeErr != nil {
				log.Printf("Warning: Failed to close transport: %v", closeErr)
			}
			return nil, fmt.Errorf("pn532: %w", err)
		}
		fmt.Printf(">> Card detected: %s (UID %X)\n", card.TypeName(), card.UID)
		return reader, nil

	default:
		return nil, fmt.Errorf("unknown transport %q (want pcsc or pn532)", cfg.Transport)
	}
}

func writeReport(path string, session *emv.Session) error {
	data, err := json.MarshalIndent(session.Export(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
