package report

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/pivotpie/collection-insights/internal/model"
)

// EncodeJSON writes the result as indented JSON to w.
func EncodeJSON(w io.Writer, res *model.AnalysisResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return eris.Wrap(err, "report: encode json")
	}
	return nil
}

// WriteJSON writes the result as indented JSON to path.
func WriteJSON(path string, res *model.AnalysisResult) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "report: create json file")
	}
	defer f.Close()

	if err := EncodeJSON(f, res); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrap(err, "report: close json file")
	}
	return nil
}

// WriteMarkdown writes the formatted report to path.
func WriteMarkdown(path string, res *model.AnalysisResult) error {
	if err := os.WriteFile(path, []byte(FormatMarkdown(res)), 0o644); err != nil {
		return eris.Wrap(err, "report: write markdown file")
	}
	return nil
}
