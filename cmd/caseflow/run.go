package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/caseflowhq/caseflow/pkg/cmd"
	"github.com/caseflowhq/caseflow/pkg/log"
	"github.com/caseflowhq/caseflow/pkg/models"
)

// RunCommand executes one ticket through the pipeline and prints the
// final payload as JSON.
func RunCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "input",
			Usage: "Path to a JSON file holding the input record (use flags otherwise)",
		},
		&cli.StringFlag{
			Name:  "customer-name",
			Usage: "Customer name",
		},
		&cli.StringFlag{
			Name:  "email",
			Usage: "Customer email",
		},
		&cli.StringFlag{
			Name:  "query",
			Usage: "The customer's request text",
		},
		&cli.StringFlag{
			Name:  "priority",
			Usage: "Ticket priority (low, medium, high, critical)",
		},
		&cli.StringFlag{
			Name:  "ticket-id",
			Usage: "Ticket identifier (generated if empty)",
		},
		logLevelFlag(),
	}
	flags = append(flags, providerFlags()...)

	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Run one ticket through the pipeline",
		Flags:   flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("run")

			record, err := buildInputRecord(command)
			if err != nil {
				return err
			}

			reg := cmd.NewRegistry(cmd.ProviderConfig{
				CommonURL: command.String("common-url"),
				AtlasURL:  command.String("atlas-url"),
			}, logger)

			engine, err := cmd.NewEngine(reg, nil, logger)
			if err != nil {
				return err
			}

			payload, err := engine.Execute(ctx, record)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(payload, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode final payload: %w", err)
			}

			fmt.Println(string(out))

			return nil
		},
	}
}

func buildInputRecord(command *cli.Command) (models.InputRecord, error) {
	var record models.InputRecord

	if inputPath := command.String("input"); inputPath != "" {
		body, err := os.ReadFile(inputPath)
		if err != nil {
			return record, fmt.Errorf("failed to read input file: %w", err)
		}

		if err := json.Unmarshal(body, &record); err != nil {
			return record, fmt.Errorf("failed to decode input file: %w", err)
		}

		return record, nil
	}

	record = models.InputRecord{
		CustomerName: command.String("customer-name"),
		Email:        command.String("email"),
		Query:        command.String("query"),
		Priority:     command.String("priority"),
		TicketID:     command.String("ticket-id"),
	}

	return record, nil
}
