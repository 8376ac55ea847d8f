package pipeline

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-marketplace/models"
)

const (
	jsonIndent    = "    "
	listSeparator = "; "
)

var csvHeader = []string{
	"app_name", "developer", "app_url", "categories", "description", "works_in", "scopes",
	"user_requirements", "view_permissions", "manage_permissions", "developer_documentation",
	"developer_privacy_policy", "developer_support", "developer_terms_of_use",
	"privacy_policy_loaded", "privacy_policy_file_path", "site_snapshot_file_path",
}

// CSVWriter flattens records into one row per app. List fields are joined
// with "; " and scopes are rendered as name=value.
type CSVWriter struct {
	file *os.File
	csv  *csv.Writer
}

// NewCSVWriter creates filename and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	f, err := createOutput(filename)
	if err != nil {
		return nil, err
	}
	cw := &CSVWriter{file: f, csv: csv.NewWriter(f)}
	if err := cw.writeRows([][]string{csvHeader}); err != nil {
		f.Close()
		return nil, fmt.Errorf("csv header: %w", err)
	}
	return cw, nil
}

// Write appends one row per record and flushes.
func (cw *CSVWriter) Write(records []*models.AppRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, csvRow(r))
	}
	if err := cw.writeRows(rows); err != nil {
		return fmt.Errorf("csv records: %w", err)
	}
	return nil
}

func (cw *CSVWriter) writeRows(rows [][]string) error {
	for _, row := range rows {
		if err := cw.csv.Write(row); err != nil {
			return err
		}
	}
	cw.csv.Flush()
	return cw.csv.Error()
}

// Close flushes pending rows and closes the file.
func (cw *CSVWriter) Close() error {
	cw.csv.Flush()
	return errors.Join(cw.csv.Error(), cw.file.Close())
}

// Validate fails when nothing, not even the header, reached the file.
func (cw *CSVWriter) Validate() error {
	return checkNonEmpty(cw.file.Name())
}

func csvRow(r *models.AppRecord) []string {
	scopes := make([]string, 0, len(r.Scopes))
	for _, s := range r.Scopes {
		scopes = append(scopes, s.Name+"="+s.Value)
	}
	return []string{
		r.AppName,
		r.Developer,
		r.AppURL,
		strings.Join(r.Categories, listSeparator),
		r.Description,
		strings.Join(r.WorksIn, listSeparator),
		strings.Join(scopes, listSeparator),
		strings.Join(r.UserRequirements, listSeparator),
		strings.Join(r.ViewPermissions, listSeparator),
		strings.Join(r.ManagePermissions, listSeparator),
		deref(r.DeveloperDocumentation),
		deref(r.DeveloperPrivacyPolicy),
		deref(r.DeveloperSupport),
		deref(r.DeveloperTermsOfUse),
		strconv.FormatBool(r.PrivacyPolicyLoadedSuccessfully),
		deref(r.PrivacyPolicyFilePath),
		r.SiteSnapshotFilePath,
	}
}

// JSONWriter streams records into one pretty-printed JSON array, four-space
// indented, so the dataset on disk grows as records arrive.
type JSONWriter struct {
	file   *os.File
	buf    *bufio.Writer
	count  int
	closed bool
}

// NewJSONWriter creates filename. The array is opened by the first record.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	f, err := createOutput(filename)
	if err != nil {
		return nil, err
	}
	return &JSONWriter{file: f, buf: bufio.NewWriter(f)}, nil
}

// Write appends records as array elements and flushes.
func (jw *JSONWriter) Write(records []*models.AppRecord) error {
	for _, r := range records {
		element, err := jsonElement(r)
		if err != nil {
			return err
		}
		lead := ",\n"
		if jw.count == 0 {
			lead = "[\n"
		}
		jw.buf.WriteString(lead + jsonIndent)
		jw.buf.Write(element)
		jw.count++
	}
	if err := jw.buf.Flush(); err != nil {
		return fmt.Errorf("json records: %w", err)
	}
	return nil
}

// Close terminates the array and closes the file. An empty dataset is "[]".
func (jw *JSONWriter) Close() error {
	if jw.closed {
		return nil
	}
	jw.closed = true

	if jw.count == 0 {
		jw.buf.WriteString("[]")
	} else {
		jw.buf.WriteString("\n]")
	}
	return errors.Join(jw.buf.Flush(), jw.file.Close())
}

// Validate fails when the dataset file is missing or empty.
func (jw *JSONWriter) Validate() error {
	return checkNonEmpty(jw.file.Name())
}

func jsonElement(r *models.AppRecord) ([]byte, error) {
	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	enc.SetIndent(jsonIndent, jsonIndent)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode %s: %w", r.AppURL, err)
	}
	return bytes.TrimRight(out.Bytes(), "\n"), nil
}

func createOutput(filename string) (*os.File, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return f, nil
}

func checkNonEmpty(filename string) error {
	info, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("stat output: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("output %s is empty", filename)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
