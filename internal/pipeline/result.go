package pipeline

import (
	"fmt"

	"github.com/qubelab/qubecrawl/internal/transcript"
)

// FetchResult is the tagged outcome of a pipeline run. Every branch of the
// pipeline terminates in exactly one variant; transport faults are always
// converted into FetchError or TranscriptError rather than propagated.
type FetchResult interface {
	fetchResult()
	// Render returns the text handed to the prompt/LLM collaborator.
	Render() string
	// ResultURL is the URL this result was produced from, when known.
	ResultURL() string
}

// Markdown is normalized page content.
type Markdown struct {
	Text      string
	SourceURL string
}

// FileInfo is PDF/binary metadata resolved without a download.
type FileInfo struct {
	FileName string
	URL      string
	SizeMB   float64
}

// Transcript is a successfully extracted YouTube transcript.
type Transcript struct {
	Text    string
	VideoID string
	URL     string
	Source  transcript.Source
}

// TranscriptError is the terminal transcript failure; Reason is always
// human-readable.
type TranscriptError struct {
	Reason  string
	VideoID string
	URL     string
}

// FetchError is a generic unrecoverable fetch failure, rendered as
// explanatory text for the user.
type FetchError struct {
	Message string
	URL     string
}

func (Markdown) fetchResult()        {}
func (FileInfo) fetchResult()        {}
func (Transcript) fetchResult()      {}
func (TranscriptError) fetchResult() {}
func (FetchError) fetchResult()      {}

func (m Markdown) Render() string { return m.Text }

func (f FileInfo) Render() string {
	return fmt.Sprintf("file_name: %s\nurl: %s\nsize_mb: %.2f", f.FileName, f.URL, f.SizeMB)
}

func (t Transcript) Render() string { return t.Text }

func (t TranscriptError) Render() string {
	return fmt.Sprintf("transcript unavailable: %s\nvideo url: %s", t.Reason, t.URL)
}

func (e FetchError) Render() string { return e.Message }

func (m Markdown) ResultURL() string        { return m.SourceURL }
func (f FileInfo) ResultURL() string        { return f.URL }
func (t Transcript) ResultURL() string      { return t.URL }
func (t TranscriptError) ResultURL() string { return t.URL }
func (e FetchError) ResultURL() string      { return e.URL }
