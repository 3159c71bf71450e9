package gateway

// PubKeyResponse is the payload of the public key endpoints.
type PubKeyResponse struct {
	Success   bool   `json:"success"`
	Address   string `json:"address,omitempty"`
	PublicKey string `json:"publicKey,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BulkPubKeyRequest is the body of POST /v1/address/pubkey.
type BulkPubKeyRequest struct {
	Addresses []string `json:"addresses"`
}

// MutableDataResponse is the payload of the mutable data endpoints.
// MutableData is empty when no authentic record exists.
type MutableDataResponse struct {
	MutableData string `json:"mutableData"`
}

// ErrorResponse is returned with 4xx and 5xx statuses outside the
// public key endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the payload of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
