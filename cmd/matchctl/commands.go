package main

import (
	"errors"
	"fmt"

	"realty_crm_backend/internal/maps"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func createRunCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "run [clientId]",
		Short: "Run batch matching for one client and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := e.svc.RunClient(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
}

func createLeadsForPropertyCmd(e *env) *cobra.Command {
	var persist bool
	cmd := &cobra.Command{
		Use:   "leads-for-property [clientId] [propertyId]",
		Short: "List the leads interested in a property",
		Long:  "Scores every interested lead against the property. With --persist the matches are stored and announced like a newly registered property.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			propertyID, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid property id %q: %w", args[1], err)
			}

			if persist {
				resp, err := e.svc.HandleNewProperty(cmd.Context(), args[0], propertyID)
				if err != nil {
					return err
				}
				return printJSON(cmd, resp)
			}
			resp, err := e.svc.LeadsForProperty(cmd.Context(), args[0], propertyID)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	cmd.Flags().BoolVar(&persist, "persist", false, "store the matches and publish the new-property event")
	return cmd
}

func createStatsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [clientId]",
		Short: "Print matching statistics for a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := e.svc.Stats(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
}

func createReportCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "report [clientId]",
		Short: "Print a download link for the newest archived batch report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := e.svc.LatestReport(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
}

func createGeocodeCmd(e *env) *cobra.Command {
	var (
		leads      bool
		properties bool
		batchSize  int
	)
	cmd := &cobra.Command{
		Use:   "geocode",
		Short: "Backfill missing coordinates through Nominatim",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !leads && !properties {
				return errors.New("nothing to do: pass --leads and/or --properties")
			}
			if batchSize < 1 {
				return errors.New("--batch must be positive")
			}

			geocoder := maps.NewService(e.cfg, e.log)
			var sources []maps.BackfillSource
			if leads {
				sources = append(sources, maps.LeadSource(e.repo))
			}
			if properties {
				sources = append(sources, maps.PropertySource(e.repo))
			}

			for _, src := range sources {
				res, err := maps.Backfill(cmd.Context(), geocoder, src, batchSize, e.log)
				if err != nil {
					return fmt.Errorf("%s backfill: %w", src.Kind, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d geocoded, %d failed\n", src.Kind, res.Geocoded, res.Failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&leads, "leads", false, "geocode lead search addresses")
	cmd.Flags().BoolVar(&properties, "properties", false, "geocode property addresses")
	cmd.Flags().IntVar(&batchSize, "batch", 25, "rows fetched per query")
	return cmd
}
