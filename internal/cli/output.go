// Package cli renders co-pilot results for the terminal and talks to a running server.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/hyperjump/copilot/internal/engine"
	"github.com/hyperjump/copilot/internal/models"
	"github.com/hyperjump/copilot/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

var (
	heading = color.New(color.FgCyan, color.Bold).SprintFunc()
	label   = color.New(color.Bold).SprintFunc()
	good    = color.New(color.FgGreen).SprintFunc()
	bad     = color.New(color.FgRed).SprintFunc()
	warn    = color.New(color.FgYellow).SprintFunc()
)

const rule = "─────────────────────────────────────────────────────────"

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteGenerationResult writes generated solutions to w in the given format.
func WriteGenerationResult(w io.Writer, result *models.GenerationResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, result)
	}
	fmt.Fprintf(w, "\nGenerated %d solutions from %d technologies in %.1fs\n",
		len(result.Solutions), result.TechnologiesAnalyzed, result.ProcessingTime)
	if result.SubmissionID != "" {
		fmt.Fprintf(w, "Submission: %s\n", result.SubmissionID)
	}
	fmt.Fprintln(w)
	for _, s := range result.Solutions {
		writeSolution(w, s)
	}
	return nil
}

func writeSolution(w io.Writer, s models.Solution) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%s\n", heading(fmt.Sprintf("#%d %s", s.ID, s.Title)))
	fmt.Fprintf(w, "%s %s | %s %s | %s %s\n",
		label("Feasibility:"), s.Feasibility,
		label("Timeline:"), s.TimelineEstimate,
		label("Cost:"), s.EstimatedCostRange)
	if s.Description != "" {
		fmt.Fprintf(w, "\n%s\n", s.Description)
	}
	if s.HowItWorks != "" {
		fmt.Fprintf(w, "\n%s %s\n", label("How it works:"), s.HowItWorks)
	}
	if len(s.Technologies) > 0 {
		fmt.Fprintf(w, "\n%s\n", label("Technologies:"))
		for _, t := range s.Technologies {
			fmt.Fprintf(w, "  [%s] %s (%s, TRL %s, relevance %.2f)\n",
				t.TechID, t.Title, t.Provider, t.TRL, t.RelevanceScore)
			fmt.Fprintf(w, "      %s\n", utils.Truncate(t.Reasoning, 160))
		}
	}
	writeList(w, "Benefits:", s.Benefits)
	writeList(w, "Integration:", s.IntegrationConsiderations)
	fmt.Fprintln(w)
}

func writeList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", label(title))
	for _, it := range items {
		fmt.Fprintf(w, "  - %s\n", it)
	}
}

func statusText(s models.SubmissionStatus) string {
	switch s {
	case models.StatusApproved:
		return good(string(s))
	case models.StatusRejected:
		return bad(string(s))
	case models.StatusPending:
		return warn(string(s))
	default:
		return string(s)
	}
}

func writeSubmissionLine(w io.Writer, s models.Submission) {
	fmt.Fprintf(w, "%s  %-10s  %s  %d solutions  %s\n",
		s.ID, statusText(s.Status), s.SubmittedAt.Format("2006-01-02 15:04"),
		len(s.Solutions), utils.Truncate(s.Challenge.Description, 60))
}

// WriteSubmissionList writes every submission with the aggregate counts.
func WriteSubmissionList(w io.Writer, list *models.SubmissionList, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, list)
	}
	fmt.Fprintf(w, "total: %d  pending: %d  approved: %d  rejected: %d\n\n",
		list.Total, list.Pending, list.Approved, list.Rejected)
	for _, s := range list.Submissions {
		writeSubmissionLine(w, s)
	}
	return nil
}

// WritePendingList writes the pending submissions.
func WritePendingList(w io.Writer, list *models.PendingList, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, list)
	}
	fmt.Fprintf(w, "pending: %d\n\n", list.Count)
	for _, s := range list.Submissions {
		writeSubmissionLine(w, s)
	}
	return nil
}

// WriteSubmission writes one submission with its challenge and solutions.
func WriteSubmission(w io.Writer, s *models.Submission, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "%s %s\n", label("Submission:"), s.ID)
	fmt.Fprintf(w, "%s %s\n", label("Status:"), statusText(s.Status))
	fmt.Fprintf(w, "%s %s\n", label("Submitted:"), s.SubmittedAt.Format("2006-01-02 15:04:05"))
	if s.ReviewedAt != nil {
		fmt.Fprintf(w, "%s %s\n", label("Reviewed:"), s.ReviewedAt.Format("2006-01-02 15:04:05"))
	}
	if s.Feedback != nil {
		fmt.Fprintf(w, "%s %s\n", label("Feedback:"), *s.Feedback)
	}
	fmt.Fprintf(w, "%s %s\n\n", label("Challenge:"), s.Challenge.Description)
	for _, sol := range s.Solutions {
		writeSolution(w, sol)
	}
	return nil
}

// WriteDatabaseStatus writes catalog and index status.
func WriteDatabaseStatus(w io.Writer, st *engine.DatabaseStatus, format OutputFormat) error {
	if format == OutputJSON {
		if !st.Loaded {
			return writeJSON(w, map[string]interface{}{"loaded": false, "message": st.Message})
		}
		return writeJSON(w, st)
	}
	if !st.Loaded {
		fmt.Fprintf(w, "loaded:             %s\n", bad("false"))
		fmt.Fprintf(w, "message:            %s\n", st.Message)
		return nil
	}
	fmt.Fprintf(w, "loaded:             %s\n", good("true"))
	fmt.Fprintf(w, "technology_count:   %d   # existing technologies in the catalog\n", st.TechnologyCount)
	fmt.Fprintf(w, "collection_count:   %d   # documents in the search index\n", st.CollectionCount)
	fmt.Fprintf(w, "last_updated:       %s\n", st.LastUpdated)
	fmt.Fprintf(w, "disk_usage_bytes:   %d   # index + submission database on disk\n", st.DiskUsageBytes)
	return nil
}
