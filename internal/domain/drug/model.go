package drug

import "errors"

var (
	ErrInvalidQuery = errors.New("invalid search query")
	ErrUnavailable  = errors.New("search temporarily unavailable")
)

// Brand is one row of the externally-maintained drug brand index. The
// application only ever reads it.
type Brand struct {
	Identifier        int64   `json:"identifier"`
	BrandName         string  `json:"brand_name"`
	GenericIdentifier *int64  `json:"generic_identifier"`
	LicenseStatus     *string `json:"license_status"`
}
