package data

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"supply-forecast/internal/model"
)

// LoadDriversJSON reads a driver path document (see model.DriverVector).
func LoadDriversJSON(path string) (model.DriverVector, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.DriverVector{}, err
	}
	defer f.Close()
	v, err := DecodeDrivers(f)
	if err != nil {
		return model.DriverVector{}, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// DecodeDrivers decodes one driver path document. Unknown keys are rejected
// so a misspelt driver does not silently become an empty series.
func DecodeDrivers(r io.Reader) (model.DriverVector, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var v model.DriverVector
	if err := dec.Decode(&v); err != nil {
		return model.DriverVector{}, fmt.Errorf("%w: decode drivers: %v", model.ErrDataContract, err)
	}
	return v, nil
}

// WriteDriversJSON writes v in the format read by DecodeDrivers.
func WriteDriversJSON(w io.Writer, v model.DriverVector) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
