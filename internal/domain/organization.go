package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Organization maps the organizations table.
// Building and Activities are filled only by the relation-loading queries.
type Organization struct {
	ID         int64       `db:"id" json:"id"`
	Name       string      `db:"name" json:"name"`
	Phones     Phones      `db:"phones" json:"phones"`
	BuildingID int64       `db:"building_id" json:"building_id"`
	Building   *Building   `db:"-" json:"building,omitempty"`
	Activities []*Activity `db:"-" json:"activities"`
}

// ActivityIDs returns the ids of the loaded activities in load order.
func (o *Organization) ActivityIDs() []int64 {
	ids := make([]int64, 0, len(o.Activities))
	for _, a := range o.Activities {
		ids = append(ids, a.ID)
	}
	return ids
}

// OrganizationActivity is one row of the organization_activities join table.
type OrganizationActivity struct {
	OrganizationID int64 `db:"organization_id"`
	ActivityID     int64 `db:"activity_id"`
}

// Phones is an ordered list of phone numbers stored as a JSONB array.
// A nil list is stored as SQL NULL.
type Phones []string

// Value implements driver.Valuer.
func (p Phones) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	b, err := json.Marshal([]string(p))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (p *Phones) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("phones: unsupported scan type %T", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*p = out
	return nil
}
