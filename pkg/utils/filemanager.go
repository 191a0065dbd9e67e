// =============================================================================
// Schedule Extractor - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for extraction runs:
//   - Input discovery (single file or directory tree)
//   - Output file naming
//   - Issue log generation (unparseable fields, dropped rows)
//   - Run summary generation
//   - Directory management
//
// RUN LAYOUT:
//   output/
//     <source>_<run>.csv            one record file per input
//     issues_<run>.txt              only when something was skipped
//     run_summary_<run>.json        always
//
// =============================================================================

package utils

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for one extraction run.
type FileManager struct {
	// InputDir is scanned when no explicit input file is given.
	InputDir string

	// OutputDir receives record files, issue logs and summaries.
	OutputDir string

	// RunID identifies the run in generated file names.
	RunID string

	// Started is the run start time, used for {timestamp}.
	Started time.Time
}

// NewFileManager creates a FileManager with a fresh run id.
func NewFileManager(inputDir, outputDir string) *FileManager {
	return &FileManager{
		InputDir:  inputDir,
		OutputDir: outputDir,
		RunID:     uuid.New().String(),
		Started:   time.Now(),
	}
}

// ShortRunID returns the first block of the run id.
func (fm *FileManager) ShortRunID() string {
	if i := strings.Index(fm.RunID, "-"); i > 0 {
		return fm.RunID[:i]
	}
	return fm.RunID
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates the output directory if it doesn't exist.
//
// RETURNS:
//   - An error if the directory cannot be created.
func (fm *FileManager) EnsureDirectories() error {
	if err := os.MkdirAll(fm.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", fm.OutputDir, err)
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles walks the input directory and returns the files the
// predicate accepts, sorted by path.
//
// PARAMETERS:
//   - accept: Decides whether a file is an input. nil accepts every file.
//
// RETURNS:
//   - A slice of file paths.
//   - An error if the directory cannot be read.
func (fm *FileManager) DiscoverInputFiles(accept func(path string) bool) ([]string, error) {
	var files []string

	err := filepath.WalkDir(fm.InputDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != fm.InputDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if accept == nil || accept(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk input directory: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName builds an output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//     Placeholders:
//     {run}       - The run id
//     {timestamp} - Run start (YYYYMMDD_HHMMSS)
//     {date}      - Run start date (YYYYMMDD)
//     {source}    - Input file base name without extension
//     {profile}   - Source profile name
//   - extension: The extension to enforce, e.g. ".csv".
//   - params: Placeholder values ("source", "profile", ...).
//
// RETURNS:
//   - The generated file name.
//
// EXAMPLE:
//
//	format: "{profile}_{source}_{timestamp}"
//	params: {"source": "arcc_10q", "profile": "arcc"}
//	output: "arcc_arcc_10q_20250630_143022.csv"
func (fm *FileManager) GenerateOutputFileName(format, extension string, params map[string]string) string {
	replacements := map[string]string{
		"{run}":       fm.ShortRunID(),
		"{timestamp}": fm.Started.Format("20060102_150405"),
		"{date}":      fm.Started.Format("20060102"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = sanitize(value)
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if extension != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(extension)) {
		result += extension
	}

	return result
}

// OutputPath joins a generated name onto the output directory.
func (fm *FileManager) OutputPath(format, extension string, params map[string]string) string {
	return filepath.Join(fm.OutputDir, fm.GenerateOutputFileName(format, extension, params))
}

// SourceName returns a file's base name without its extension.
func SourceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}

// =============================================================================
// ISSUE LOG GENERATION
// =============================================================================

// IssueLogEntry is one skipped field, row or document.
type IssueLogEntry struct {
	FileName  string
	IssueType string
	Message   string
	Field     string
	Value     string
}

// WriteIssueLog writes issue entries to a text file in the output
// directory.
//
// RETURNS:
//   - The path to the log file, or "" when there was nothing to write.
//   - An error if writing fails.
func (fm *FileManager) WriteIssueLog(entries []IssueLogEntry) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	logPath := filepath.Join(fm.OutputDir, fmt.Sprintf("issues_%s.txt", fm.ShortRunID()))

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create issue log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Schedule Extractor - Issue Log\n"+
		"Run:          %s\n"+
		"Generated:    %s\n"+
		"Total Issues: %d\n"+
		"================================================================================\n\n",
		fm.RunID,
		time.Now().Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Issue #%d\n"+
			"  File:    %s\n"+
			"  Type:    %s\n"+
			"  Message: %s\n",
			i+1, entry.FileName, entry.IssueType, entry.Message)
		if entry.Field != "" {
			fmt.Fprintf(writer, "  Field:   %s\n", entry.Field)
		}
		if entry.Value != "" {
			fmt.Fprintf(writer, "  Value:   %s\n", entry.Value)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Issue Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush issue log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// RunSummary contains summary information about an extraction run.
type RunSummary struct {
	RunID           string           `json:"run_id"`
	StartTime       time.Time        `json:"start_time"`
	EndTime         time.Time        `json:"end_time"`
	TotalFiles      int              `json:"total_files"`
	SuccessfulFiles int              `json:"successful_files"`
	DegradedFiles   int              `json:"degraded_files"`
	FailedFiles     int              `json:"failed_files"`
	TotalRecords    int              `json:"total_records"`
	FieldErrors     int              `json:"field_errors"`
	Files           []FileSummary    `json:"files"`
	Failures        []FailedFileInfo `json:"failures,omitempty"`
}

// FileSummary describes one extracted input.
type FileSummary struct {
	InputFile  string         `json:"input_file"`
	OutputFile string         `json:"output_file,omitempty"`
	Profile    string         `json:"profile"`
	Kind       string         `json:"kind"`
	Records    int            `json:"records"`
	Dropped    map[string]int `json:"dropped,omitempty"`
	Warnings   int            `json:"warnings"`
	Duration   string         `json:"duration"`
	Summary    interface{}    `json:"summary,omitempty"`
}

// FailedFileInfo contains information about an input that could not be
// read or written.
type FailedFileInfo struct {
	InputFile    string `json:"input_file"`
	ErrorMessage string `json:"error"`
}

// Duration returns the run duration.
func (s RunSummary) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// WriteSummaryLog writes the run summary as indented JSON.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func (fm *FileManager) WriteSummaryLog(summary RunSummary) (string, error) {
	summaryPath := filepath.Join(fm.OutputDir, fmt.Sprintf("run_summary_%s.json", fm.ShortRunID()))

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode summary: %w", err)
	}

	if err := os.WriteFile(summaryPath, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
