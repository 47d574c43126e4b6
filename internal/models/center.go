package models

// ServiceCenter is the query-side view of a center registration. The name is
// cleared when a center is deactivated, so Name is empty whenever Active is
// false.
type ServiceCenter struct {
	Principal Principal `bson:"principal" json:"principal"`
	Name      string    `bson:"name" json:"name"`
	Active    bool      `bson:"active" json:"active"`
}
