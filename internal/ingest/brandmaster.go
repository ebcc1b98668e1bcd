package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// brandMasterColumns is the column order of the tab-separated BrandMaster
// export, matching the drug_brands table.
var brandMasterColumns = []string{
	"identifier",
	"brand_name",
	"product_identifier",
	"supplier_identifier",
	"generic_identifier",
	"license_number",
	"license_status",
	"excipient",
	"last_updated_on",
}

// BrandRow is one parsed line of the BrandMaster file. Optional columns are
// nil when the source field is empty.
type BrandRow struct {
	Identifier         int64
	BrandName          string
	ProductIdentifier  *int64
	SupplierIdentifier *int64
	GenericIdentifier  *int64
	LicenseNumber      *string
	LicenseStatus      *string
	Excipient          *string
	LastUpdatedOn      *string
}

func (r *BrandRow) values() []interface{} {
	return []interface{}{
		r.Identifier, r.BrandName, r.ProductIdentifier, r.SupplierIdentifier,
		r.GenericIdentifier, r.LicenseNumber, r.LicenseStatus, r.Excipient, r.LastUpdatedOn,
	}
}

func parseBrandLine(line string) (*BrandRow, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != len(brandMasterColumns) {
		return nil, fmt.Errorf("expected %d tab-separated fields, got %d", len(brandMasterColumns), len(fields))
	}

	identifier, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad identifier %q: %w", fields[0], err)
	}
	brandName := strings.TrimSpace(fields[1])
	if brandName == "" {
		return nil, fmt.Errorf("empty brand name for identifier %d", identifier)
	}

	row := &BrandRow{Identifier: identifier, BrandName: brandName}
	if row.ProductIdentifier, err = optionalInt(fields[2]); err != nil {
		return nil, fmt.Errorf("bad product identifier %q: %w", fields[2], err)
	}
	if row.SupplierIdentifier, err = optionalInt(fields[3]); err != nil {
		return nil, fmt.Errorf("bad supplier identifier %q: %w", fields[3], err)
	}
	if row.GenericIdentifier, err = optionalInt(fields[4]); err != nil {
		return nil, fmt.Errorf("bad generic identifier %q: %w", fields[4], err)
	}
	row.LicenseNumber = optionalText(fields[5])
	row.LicenseStatus = optionalText(fields[6])
	row.Excipient = optionalText(fields[7])
	row.LastUpdatedOn = optionalText(fields[8])
	return row, nil
}

func optionalInt(field string) (*int64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optionalText(field string) *string {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil
	}
	return &field
}

// readBrandMaster streams parsed rows to emit, skipping the header line.
// Returns the number of rows emitted.
func readBrandMaster(r io.Reader, emit func(*BrandRow) error) (int64, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("brand master file is empty")
	}

	var count int64
	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		row, err := parseBrandLine(line)
		if err != nil {
			return count, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if err := emit(row); err != nil {
			return count, err
		}
		count++
	}
	return count, scanner.Err()
}
