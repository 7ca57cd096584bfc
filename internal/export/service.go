package export

import "fmt"

// Export renders the prepared entries in the requested format. Callers hand
// over the entries they may see; there is no data access here.
func Export(req Request) (*Result, error) {
	html, err := RenderFAQHTML(req.Title, req.Entries)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatPDF:
		return exportPDF(html, req.Title)
	case FormatDOCX:
		return exportDOCX(html, req.Title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}
