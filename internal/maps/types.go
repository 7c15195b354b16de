package maps

type LookupRequest struct {
	Query string `form:"q" binding:"required,min=3"`
}

const msgGeocoderUnavailable = "address lookup service unavailable"

type GeocodeRequest struct {
	Address string `form:"address" binding:"required,min=3"`
	City    string `form:"city"`
}

type GeocodeResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AddressSuggestion is the normalized data returned to the frontend form.
type AddressSuggestion struct {
	Label        string  `json:"label"`
	Street       string  `json:"street"`
	HouseNumber  string  `json:"houseNumber"`
	Neighborhood string  `json:"neighborhood"`
	ZipCode      string  `json:"zipCode"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
}

type nominatimAddress struct {
	Road          string `json:"road"`
	HouseNumber   string `json:"house_number"`
	Suburb        string `json:"suburb"`
	Neighbourhood string `json:"neighbourhood"`
	CityDistrict  string `json:"city_district"`
	Postcode      string `json:"postcode"`
	City          string `json:"city"`
	Town          string `json:"town"`
	Village       string `json:"village"`
	Municipality  string `json:"municipality"`
	Hamlet        string `json:"hamlet"`
	State         string `json:"state"`
}

// nominatimResponse mirrors the relevant parts of the OSM search payload.
type nominatimResponse struct {
	DisplayName string           `json:"display_name"`
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	Address     nominatimAddress `json:"address"`
}
