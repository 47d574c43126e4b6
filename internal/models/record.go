package models

import "errors"

// ServiceRecord represents one maintenance event on a vehicle's history.
// Records are append-only: once stored they are never mutated or removed.
type ServiceRecord struct {
	Timestamp     int64     `bson:"timestamp" json:"timestamp"` // unix seconds, assigned at insertion
	VehicleID     string    `bson:"vehicle_id" json:"vehicle_id"`
	ServiceType   string    `bson:"service_type" json:"service_type"`
	Mileage       int64     `bson:"mileage" json:"mileage"`
	Description   string    `bson:"description" json:"description"`
	ServiceCenter Principal `bson:"service_center" json:"service_center"`
}

// Validate checks the caller-supplied fields of a record. Timestamp and
// ServiceCenter are ledger-assigned and not validated here.
func (r ServiceRecord) Validate() error {
	if r.VehicleID == "" {
		return errors.New("vehicle id is required")
	}
	if r.ServiceType == "" {
		return errors.New("service type is required")
	}
	if r.Mileage <= 0 {
		return errors.New("mileage must be a positive integer")
	}
	return nil
}
