package dirclient

// Coordinates is a lat/lon pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Building struct {
	ID          int64       `json:"id"`
	Address     string      `json:"address"`
	Coordinates Coordinates `json:"coordinates"`
}

type Activity struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
	Level    int    `json:"level"`
}

type Organization struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Phones     []string    `json:"phones"`
	BuildingID int64       `json:"building_id"`
	Building   *Building   `json:"building,omitempty"`
	Activities []*Activity `json:"activities"`
}

// OrganizationInput is the body of create and update organization calls.
type OrganizationInput struct {
	Name        string   `json:"name"`
	Phones      []string `json:"phones"`
	BuildingID  int64    `json:"building_id"`
	ActivityIDs []int64  `json:"activity_ids"`
}

// withActivityList sends [] instead of null; the API requires the key.
func (in OrganizationInput) withActivityList() OrganizationInput {
	if in.ActivityIDs == nil {
		in.ActivityIDs = []int64{}
	}
	return in
}

// Box is an inclusive lat/lon search rectangle.
type Box struct {
	LatMin float64
	LonMin float64
	LatMax float64
	LonMax float64
}

type mutationResult struct {
	OK        bool   `json:"ok"`
	CreatedID *int64 `json:"created_id"`
	UpdatedID *int64 `json:"updated_id"`
	DeletedID *int64 `json:"deleted_id"`
}

type errorBody struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}
