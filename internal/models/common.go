package models

// GeoPoint is a GeoJSON point as stored in MongoDB ([longitude, latitude]).
// Collections carrying one get a 2dsphere index so $near queries work.
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

// NewGeoPoint builds a GeoJSON point from a lat/lng pair.
func NewGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

// Location is a human-readable address plus its coordinates.
type Location struct {
	Address string   `bson:"address" json:"address"`
	Point   GeoPoint `bson:"point" json:"point"`
}

// Weight describes the cargo weight of an offer.
type Weight struct {
	Value float64 `bson:"value" json:"value"`
	Unit  string  `bson:"unit" json:"unit"` // e.g. kg
}

// PriceRange is the requester's acceptable price band for an offer.
type PriceRange struct {
	Min float64 `bson:"min" json:"min"`
	Max float64 `bson:"max" json:"max"`
}

// MediaPointer references a document or photo stored on S3.
type MediaPointer struct {
	ID       string `bson:"id" json:"id"`
	URL      string `bson:"url" json:"url"`
	FileName string `bson:"fileName" json:"fileName"`
	FileType string `bson:"fileType" json:"fileType"` // e.g. "image/jpeg"
}
