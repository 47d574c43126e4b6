package models

// AddCenterRequest authorizes a service center. Owner only.
type AddCenterRequest struct {
	Principal Principal `json:"principal"`
	Name      string    `json:"name"`
}

// AddRecordRequest appends a service record to a vehicle's history. The
// service center is taken from the authenticated caller, never from the body.
type AddRecordRequest struct {
	VehicleID   string `json:"vehicle_id"`
	ServiceType string `json:"service_type"`
	Mileage     int64  `json:"mileage"`
	Description string `json:"description"`
}

// HistoryResponse is the full insertion-ordered history for one vehicle.
type HistoryResponse struct {
	VehicleID string          `json:"vehicle_id"`
	Records   []ServiceRecord `json:"records"`
}

// CountResponse is the record count for one vehicle.
type CountResponse struct {
	VehicleID string `json:"vehicle_id"`
	Count     int    `json:"count"`
}

// LedgerInfoResponse is the persisted ledger identity external tooling must
// record after deployment.
type LedgerInfoResponse struct {
	Address string    `json:"address"`
	Owner   Principal `json:"owner"`
}

// ErrorResponse carries a distinguishable failure code per taxonomy entry
// plus a human-readable diagnostic.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}
