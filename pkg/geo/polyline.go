package geo

import (
	"fmt"

	"github.com/twpayne/go-polyline"
)

var polylineCodecs = map[int]polyline.Codec{
	5: {Dim: 2, Scale: 1e5},
	6: {Dim: 2, Scale: 1e6},
}

// DecodePolyline. decode google encoded polyline with precision 5 or 6
func DecodePolyline(encoded string, precision int) ([]Coordinate, error) {
	codec, ok := polylineCodecs[precision]
	if !ok {
		return nil, fmt.Errorf("unsupported polyline precision %d", precision)
	}
	points, rest, err := codec.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("decode polyline: %d trailing bytes", len(rest))
	}

	coords := make([]Coordinate, len(points))
	for i, p := range points {
		coords[i] = NewCoordinate(p[0], p[1])
	}
	return coords, nil
}

func EncodePolyline(coords []Coordinate, precision int) (string, error) {
	codec, ok := polylineCodecs[precision]
	if !ok {
		return "", fmt.Errorf("unsupported polyline precision %d", precision)
	}
	points := make([][]float64, len(coords))
	for i, c := range coords {
		points[i] = []float64{c.Lat, c.Lon}
	}
	return string(codec.EncodeCoords(nil, points)), nil
}
