package report

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ════════════════════════════════════════════════════════════════════
// PDF Export: report.html to report.pdf through a local engine
// ════════════════════════════════════════════════════════════════════

// PDFEngine names a locally installed HTML-to-PDF converter.
type PDFEngine string

const (
	EngineWKHTML   PDFEngine = "wkhtmltopdf"
	EngineChromium PDFEngine = "chromium"
	EngineNone     PDFEngine = "none"
)

var chromiumNames = []string{"chromium-browser", "chromium", "google-chrome", "google-chrome-stable"}

// DetectPDFEngine returns the first converter found on PATH, wkhtmltopdf
// preferred over a headless browser.
func DetectPDFEngine() PDFEngine {
	if _, err := exec.LookPath("wkhtmltopdf"); err == nil {
		return EngineWKHTML
	}
	for _, name := range chromiumNames {
		if _, err := exec.LookPath(name); err == nil {
			return EngineChromium
		}
	}
	return EngineNone
}

// IsPDFSupported reports whether any converter is installed.
func IsPDFSupported() bool {
	return DetectPDFEngine() != EngineNone
}

// ExportPDF renders the report page to a PDF at path. The page is written
// to a temp file first since both engines convert from a file, not stdin.
func ExportPDF(html, path string) error {
	engine := DetectPDFEngine()
	if engine == EngineNone {
		return fmt.Errorf("no pdf engine installed (tried wkhtmltopdf, %s)", strings.Join(chromiumNames, ", "))
	}

	tmp, err := os.CreateTemp("", "newspulse-report-*.html")
	if err != nil {
		return fmt.Errorf("create temp page: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(html); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp page: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	switch engine {
	case EngineWKHTML:
		return wkhtmlPDF(tmpPath, path)
	default:
		return chromiumPDF(tmpPath, path)
	}
}

func wkhtmlPDF(src, dst string) error {
	args := []string{
		"--page-size", "A4",
		"--margin-top", "15mm",
		"--margin-bottom", "15mm",
		"--encoding", "UTF-8",
		"--enable-local-file-access",
		"--quiet",
		src,
		dst,
	}
	if out, err := exec.Command("wkhtmltopdf", args...).CombinedOutput(); err != nil {
		return fmt.Errorf("wkhtmltopdf: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func chromiumPDF(src, dst string) error {
	var bin string
	for _, name := range chromiumNames {
		if path, err := exec.LookPath(name); err == nil {
			bin = path
			break
		}
	}
	if bin == "" {
		return fmt.Errorf("chromium not found in PATH")
	}

	// Chromium resolves --print-to-pdf relative to its own cwd.
	abs, err := filepath.Abs(dst)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	args := []string{
		"--headless",
		"--disable-gpu",
		"--no-sandbox",
		"--print-to-pdf=" + abs,
		"--print-to-pdf-no-header",
		"file://" + src,
	}
	if out, err := exec.Command(bin, args...).CombinedOutput(); err != nil {
		return fmt.Errorf("chromium pdf export: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
