package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vectoratlas/atlas-cli/internal/geojson"
	"github.com/vectoratlas/atlas-cli/internal/query"
)

var (
	querySpecies string
	queryBBox    string
)

var queryCmd = &cobra.Command{
	Use:   "query <layer>",
	Short: "Query a layer and print the FeatureCollection",
	Long:  "Filters stored features by layer, optional species names, and an optional bounding box, and prints the reconstructed GeoJSON to stdout.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var bbox *geojson.BBox
		if queryBBox != "" {
			b, err := geojson.ParseBBox(queryBBox)
			if err != nil {
				return err
			}
			bbox = b
		}

		var species []string
		if querySpecies != "" {
			species = strings.Split(querySpecies, ",")
		}

		st, err := newStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		fc, err := query.NewService(st).Features(ctx, args[0], species, bbox)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(fc, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVar(&querySpecies, "species", "", "comma-separated species names (exact match)")
	queryCmd.Flags().StringVar(&queryBBox, "bbox", "", "bounding box as min_lon,min_lat,max_lon,max_lat")
	rootCmd.AddCommand(queryCmd)
}
