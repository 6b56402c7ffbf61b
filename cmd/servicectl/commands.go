package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/service-aggregator/internal/usecase/dto"
)

func newSearchCmd(opts *rootOptions, factory BackendFactory) *cobra.Command {
	var (
		req      dto.SearchRequest
		lat, lng float64
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run an aggregated search and print the grouped result",
		Example: `  servicectl search --type clinic --country Jordan
  servicectl search --type food --country Kenya --lat -1.29 --lng 36.82`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			latSet, lngSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lng")
			if latSet != lngSet {
				return fmt.Errorf("--lat and --lng must be given together")
			}
			if latSet {
				req.Lat, req.Lng = &lat, &lng
			}

			return withBackend(cmd, opts, factory, func(ctx context.Context, b Backend) error {
				resp, cached, err := b.Search(ctx, req)
				if err != nil {
					return err
				}
				if cached {
					fmt.Fprintln(cmd.ErrOrStderr(), "served from cache")
				}
				return writeJSON(cmd.OutOrStdout(), resp)
			})
		},
	}

	cmd.Flags().StringVar(&req.Type, "type", "", "service type: clinic, shelter, food, legal, education, other")
	cmd.Flags().StringVar(&req.Country, "country", "", "country name")
	cmd.Flags().Float64Var(&lat, "lat", 0, "user latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "user longitude")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("country")
	return cmd
}

func newRefreshCmd(opts *rootOptions, factory BackendFactory) *cobra.Command {
	var (
		req  dto.RefreshRequest
		bbox string
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch a provider's services for a country and write them to the store",
		Example: `  servicectl refresh --provider OSM --country Jordan
  servicectl refresh --provider GooglePlaces --country Jordan --bbox 31.90,35.85,32.00,35.95`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if bbox != "" {
				req.BBox = &bbox
			}

			return withBackend(cmd, opts, factory, func(ctx context.Context, b Backend) error {
				resp, err := b.Refresh(ctx, req)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), resp)
			})
		},
	}

	cmd.Flags().StringVar(&req.Provider, "provider", "", "provider name: OSM, GooglePlaces or a relief feed name")
	cmd.Flags().StringVar(&req.Country, "country", "", "country name")
	cmd.Flags().StringVar(&bbox, "bbox", "", "optional minLat,minLon,maxLat,maxLon")
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.MarkFlagRequired("country")
	return cmd
}

func newProvidersCmd(opts *rootOptions, factory BackendFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List configured providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, opts, factory, func(_ context.Context, b Backend) error {
				for _, name := range b.Providers() {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			})
		},
	}
}
