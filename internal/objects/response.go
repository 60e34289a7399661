package objects

type ErrorResponse struct {
	Error Error `json:"error"`
}

type Error struct {
	Type string `json:"type"`

	// Code is the stable machine-readable denial code, when the error is a
	// permission denial.
	Code string `json:"code,omitempty"`

	Message string `json:"message"`
}
