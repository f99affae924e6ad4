// Package models defines core data structures for the technology catalog,
// client challenges, generated solutions and review submissions.
package models

import "time"

// TechnologyRecord is one row of the filtered catalog. ID is the dense,
// zero-based position assigned at load time.
type TechnologyRecord struct {
	ID          int    `json:"tech_id"`
	Title       string `json:"title"`
	Provider    string `json:"provider"`
	Description string `json:"description"`
	Category    string `json:"category"`
	SubCategory string `json:"sub_category"`
	TRL         string `json:"trl"`
	Notes       string `json:"notes"`
}

// CatalogVersion identifies the catalog content that the active index was built from.
type CatalogVersion struct {
	FileHash        string    `json:"file_hash"`
	Collection      string    `json:"collection"`
	TechnologyCount int       `json:"technology_count"`
	LastUpdated     time.Time `json:"last_updated"`
}

// RetrievedTechnology is a catalog record returned by a similarity query.
// Distance comes from the search service; lower means more similar.
type RetrievedTechnology struct {
	TechnologyRecord
	Distance float64 `json:"distance"`
}

// Relevance returns 1 - distance. It is not clamped.
func (r RetrievedTechnology) Relevance() float64 {
	return 1.0 - r.Distance
}

// TechnologyMatch is a retrieved technology attached to a solution together
// with the role the model assigned to it.
type TechnologyMatch struct {
	TechID         string  `json:"tech_id"`
	Title          string  `json:"title"`
	Provider       string  `json:"provider"`
	Description    string  `json:"description"`
	TRL            string  `json:"trl"`
	Category       string  `json:"category"`
	SubCategory    string  `json:"sub_category"`
	RelevanceScore float64 `json:"relevance_score"`
	Reasoning      string  `json:"reasoning"`
}

// NewTechnologyMatch projects a retrieved technology into a match.
func NewTechnologyMatch(r RetrievedTechnology, reasoning string) TechnologyMatch {
	return TechnologyMatch{
		TechID:         TechIDString(r.ID),
		Title:          r.Title,
		Provider:       r.Provider,
		Description:    r.Description,
		TRL:            r.TRL,
		Category:       r.Category,
		SubCategory:    r.SubCategory,
		RelevanceScore: r.Relevance(),
		Reasoning:      reasoning,
	}
}
