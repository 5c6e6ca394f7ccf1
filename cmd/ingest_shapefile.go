package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vectoratlas/atlas-cli/internal/ingest"
)

var shapefileOut string

var ingestShapefileCmd = &cobra.Command{
	Use:   "shapefile <path.shp>",
	Short: "Convert an ESRI shapefile to a layer GeoJSON file",
	Long:  "Converts shapefile geometries and DBF attributes into a GeoJSON FeatureCollection that the normal ingest run can consume.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := shapefileOut
		if out == "" {
			out = args[0] + ".geojson"
		}

		n, err := ingest.ConvertShapefile(args[0], out)
		if err != nil {
			return err
		}

		fmt.Printf("wrote %d features to %s\n", n, out)
		return nil
	},
}

func init() {
	ingestShapefileCmd.Flags().StringVarP(&shapefileOut, "out", "o", "", "output path (default: input path + .geojson)")
	ingestCmd.AddCommand(ingestShapefileCmd)
}
