package reporting

import (
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/archlens/archlens/api/schemas"
)

// JSONReporter serializes the scan result losslessly for machine consumers.
type JSONReporter struct {
	out io.WriteCloser
}

func NewJSONReporter(out io.WriteCloser) *JSONReporter {
	return &JSONReporter{out: out}
}

func (r *JSONReporter) Write(result *schemas.ScanResult) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func (r *JSONReporter) Close() error {
	return r.out.Close()
}
