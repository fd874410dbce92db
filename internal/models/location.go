package models

// Location is a named point on the globe. Latitude is in [-90, 90] and
// longitude in [-180, 180]; range checks happen at the API boundary.
type Location struct {
	Name      string  `bson:"name" json:"name" validate:"required"`
	Latitude  float64 `bson:"latitude" json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `bson:"longitude" json:"longitude" validate:"gte=-180,lte=180"`
}
