package markers

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
)

// ImportOSM extracts amenity=cafe nodes from an OSM PBF stream. progress,
// when set, is called with the number of bytes decoded so far.
func ImportOSM(ctx context.Context, r io.Reader, procs int, progress func(scanned int64)) ([]Cafe, error) {
	scanner := osmpbf.New(ctx, r, procs)
	defer scanner.Close()

	scanner.SkipWays = true
	scanner.SkipRelations = true

	cafes := []Cafe{}
	for scanner.Scan() {
		if progress != nil {
			progress(scanner.FullyScannedBytes())
		}
		node, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if cafe, ok := cafeFromNode(node); ok {
			cafes = append(cafes, cafe)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning osm data: %w", err)
	}
	return cafes, nil
}

func cafeFromNode(node *osm.Node) (Cafe, bool) {
	if node.Tags.Find("amenity") != "cafe" {
		return Cafe{}, false
	}
	name := node.Tags.Find("name")
	if name == "" {
		return Cafe{}, false
	}

	lng, lat := node.Lon, node.Lat
	return Cafe{
		ID:      "osm-node-" + strconv.FormatInt(int64(node.ID), 10),
		Name:    name,
		Address: address(node.Tags),
		Lng:     &lng,
		Lat:     &lat,
	}, true
}

func address(tags osm.Tags) string {
	street := tags.Find("addr:street")
	number := tags.Find("addr:housenumber")
	switch {
	case street == "":
		return ""
	case number == "":
		return street
	default:
		return street + " " + number
	}
}
